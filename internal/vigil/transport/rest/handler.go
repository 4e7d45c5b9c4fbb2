// Package rest provides the HTTP handlers for the vigil service.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/mkravets/vigil/internal/vigil/catalog"
	"github.com/mkravets/vigil/internal/vigil/checkout"
	"github.com/mkravets/vigil/internal/vigil/ledger"
	"github.com/mkravets/vigil/internal/vigil/prefs"
	"github.com/mkravets/vigil/internal/vigil/view"
	"github.com/mkravets/vigil/pkg/bus"
	"github.com/mkravets/vigil/pkg/messaging"
	"github.com/mkravets/vigil/pkg/messaging/events"
	"github.com/mkravets/vigil/pkg/web"
)

type Handler struct {
	checkout *checkout.Service
	ledger   *ledger.Ledger
	prefs    prefs.Store
	selector *view.Selector
	catalog  *catalog.Store
	bus      *bus.Bus
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler with the provided dependencies.
func NewHandler(
	checkoutSvc *checkout.Service,
	led *ledger.Ledger,
	prefsStore prefs.Store,
	selector *view.Selector,
	cat *catalog.Store,
	b *bus.Bus,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		checkout: checkoutSvc,
		ledger:   led,
		prefs:    prefsStore,
		selector: selector,
		catalog:  cat,
		bus:      b,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the vigil service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(web.AuthMiddleware)
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/checkout", h.Checkout)
			r.Get("/purchases", h.ListPurchases)
			r.Get("/products", h.ListProducts)

			r.Route("/preferences/avatar", func(r chi.Router) {
				r.Get("/", h.GetAvatar)
				r.Put("/", h.SetAvatar)
				r.Delete("/", h.DeleteAvatar)
			})

			r.Route("/view", func(r chi.Router) {
				r.Get("/", h.CurrentView)
				r.Post("/{name}", h.Navigate)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// Checkout handles order placement.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email, ok := web.GetUserEmail(w, r, mLogger)
	if !ok {
		return
	}

	var order checkout.CheckoutDto
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	// The caller's identity comes from the authenticated request, never the body.
	order.UserEmail = email

	if !h.validateStruct(w, r, mLogger, order) {
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), order)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Checkout for unknown product", "error", err)
			web.RespondError(w, mLogger, http.StatusNotFound, err.Error())
		case errors.Is(err, catalog.ErrInsufficientStock), errors.Is(err, checkout.ErrUnknownVoucher):
			mLogger.WarnContext(r.Context(), "Checkout rejected", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		default:
			mLogger.ErrorContext(r.Context(), "Error placing order", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to place order")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Order placed successfully", slog.String("transaction_id", receipt.TransactionID))
	web.RespondJSON(w, mLogger, http.StatusCreated, receipt)
}

// ListPurchases returns the caller's purchase records, most-recent-first.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email, ok := web.GetUserEmail(w, r, mLogger)
	if !ok {
		return
	}

	all := h.ledger.Purchases()
	mine := make([]ledger.Record, 0, len(all))
	for _, record := range all {
		if record.UserEmail == email {
			mine = append(mine, record)
		}
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved purchase list", "count", len(mine))
	web.RespondJSON(w, mLogger, http.StatusOK, mine)
}

// ListProducts returns the product catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, toProductDtos(h.catalog.FindAll()))
}

// avatarDto is the request/response body for avatar operations.
type avatarDto struct {
	AvatarURL string `json:"avatar_url" validate:"required"`
}

// GetAvatar returns the caller's stored avatar.
func (h *Handler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email, ok := web.GetUserEmail(w, r, mLogger)
	if !ok {
		return
	}

	value, err := h.prefs.Get(r.Context(), prefs.Key{Namespace: prefs.NamespaceAvatar, UserID: email})
	if err != nil {
		if errors.Is(err, prefs.ErrNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, "No avatar set")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error reading avatar preference", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to read avatar")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, avatarDto{AvatarURL: value})
}

// SetAvatar stores the caller's avatar and announces the change on the bus.
func (h *Handler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email, ok := web.GetUserEmail(w, r, mLogger)
	if !ok {
		return
	}

	var body avatarDto
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, body) {
		return
	}

	key := prefs.Key{Namespace: prefs.NamespaceAvatar, UserID: email}
	if err := h.prefs.Set(r.Context(), key, body.AvatarURL); err != nil {
		mLogger.ErrorContext(r.Context(), "Error storing avatar preference", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to store avatar")
		return
	}
	h.bus.Publish(messaging.TopicAvatarUpdated, events.AvatarUpdated{UserEmail: email, AvatarURL: body.AvatarURL})

	mLogger.InfoContext(r.Context(), "Avatar updated", slog.String("user_email", email))
	web.RespondJSON(w, mLogger, http.StatusOK, body)
}

// DeleteAvatar clears the caller's avatar and announces the change on the bus.
func (h *Handler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email, ok := web.GetUserEmail(w, r, mLogger)
	if !ok {
		return
	}

	key := prefs.Key{Namespace: prefs.NamespaceAvatar, UserID: email}
	if err := h.prefs.Delete(r.Context(), key); err != nil {
		mLogger.ErrorContext(r.Context(), "Error deleting avatar preference", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to delete avatar")
		return
	}
	h.bus.Publish(messaging.TopicAvatarUpdated, events.AvatarUpdated{UserEmail: email})

	w.WriteHeader(http.StatusNoContent)
}

type viewDto struct {
	View string `json:"view"`
}

// CurrentView returns the active view.
func (h *Handler) CurrentView(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, viewDto{View: string(h.selector.Current())})
}

// Navigate requests a view switch via the bus. Delivery is synchronous, so
// the response reflects the state after the transition.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	target, err := view.Parse(name)
	if err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, "Unknown view: "+name)
		return
	}

	h.bus.Publish(view.Topic(target), nil)
	web.RespondJSON(w, mLogger, http.StatusOK, viewDto{View: string(h.selector.Current())})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// validateStruct validates a request body DTO and writes the field-level
// error response on failure. Returns true when the DTO is valid.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	err := h.validate.Struct(dto)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return false
	}
	mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
	return false
}

type productDto struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int32  `json:"stock"`
}

func toProductDtos(products []catalog.Product) []productDto {
	dtos := make([]productDto, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, productDto{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock})
	}
	return dtos
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
