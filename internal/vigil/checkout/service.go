// Package checkout implements order placement: cart validation, stock
// reservation, voucher discounts and appending the resulting purchase
// records to the ledger.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mkravets/vigil/internal/vigil/catalog"
	"github.com/mkravets/vigil/internal/vigil/ledger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// defaultVouchers maps known voucher codes to their discount percentage.
var defaultVouchers = map[string]int{
	"REST10":  10,
	"FLEET20": 20,
}

// Service places orders against the catalog and records them in the ledger.
type Service struct {
	catalog          *catalog.Store
	ledger           *ledger.Ledger
	vouchers         map[string]int
	logger           *slog.Logger
	checkoutsCounter metric.Int64Counter
}

// NewService creates a checkout Service with the built-in voucher table.
func NewService(cat *catalog.Store, led *ledger.Ledger, logger *slog.Logger) *Service {
	meter := otel.Meter("vigil")
	checkoutsCounter, err := meter.Int64Counter("checkouts_completed", metric.WithDescription("Total number of completed checkouts"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkouts_completed counter: %v", err))
	}
	return &Service{
		catalog:          cat,
		ledger:           led,
		vouchers:         defaultVouchers,
		logger:           logger.With("component", "checkout"),
		checkoutsCounter: checkoutsCounter,
	}
}

// CheckoutDto represents the data transfer object for placing an order.
type CheckoutDto struct {
	UserEmail       string    `json:"user_email" validate:"required,email"`
	UserName        string    `json:"user_name"`
	UserType        string    `json:"user_type"`
	Country         string    `json:"country"`
	PaymentMethod   string    `json:"payment_method" validate:"required"`
	ShippingAddress string    `json:"shipping_address" validate:"required"`
	Voucher         string    `json:"voucher,omitempty"`
	Items           []ItemDto `json:"items" validate:"required,gt=0,dive"`
}

// ItemDto is one cart line of a checkout request.
type ItemDto struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int32  `json:"quantity" validate:"required,min=1"`
}

// LineDto is one priced line of a receipt.
type LineDto struct {
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
}

// ReceiptDto summarizes a completed checkout. All purchase records of one
// checkout share the transaction id.
type ReceiptDto struct {
	TransactionID   string    `json:"transaction_id"`
	Total           int64     `json:"total"`
	DiscountPercent int       `json:"discount_percent,omitempty"`
	Lines           []LineDto `json:"lines"`
}

// Checkout validates the order against the catalog and voucher table,
// reserves stock, and appends one ledger record per line item.
// Returns catalog.ErrProductNotFound, catalog.ErrInsufficientStock or
// ErrUnknownVoucher; on any failure no stock stays reserved and no record
// is appended.
func (s *Service) Checkout(ctx context.Context, order CheckoutDto) (*ReceiptDto, error) {
	discount := 0
	if order.Voucher != "" {
		pct, ok := s.vouchers[order.Voucher]
		if !ok {
			s.logger.WarnContext(ctx, "rejected unknown voucher", "code", order.Voucher)
			return nil, fmt.Errorf("voucher %q: %w", order.Voucher, ErrUnknownVoucher)
		}
		discount = pct
	}

	// Resolve products before touching stock, so an invalid cart fails fast.
	products := make([]*catalog.Product, len(order.Items))
	for i, item := range order.Items {
		p, err := s.catalog.FindByID(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		products[i] = p
	}

	reserved := make([]ItemDto, 0, len(order.Items))
	for _, item := range order.Items {
		if err := s.catalog.Reserve(item.ProductID, item.Quantity); err != nil {
			for _, r := range reserved {
				s.catalog.Release(r.ProductID, r.Quantity)
			}
			return nil, err
		}
		reserved = append(reserved, item)
	}

	transactionID := uuid.NewString()
	receipt := &ReceiptDto{
		TransactionID:   transactionID,
		DiscountPercent: discount,
		Lines:           make([]LineDto, 0, len(order.Items)),
	}

	for i, item := range order.Items {
		unitPrice := products[i].Price * int64(100-discount) / 100
		lineTotal := unitPrice * int64(item.Quantity)

		record := ledger.Record{
			TransactionID:   transactionID,
			UserEmail:       order.UserEmail,
			UserName:        order.UserName,
			UserType:        order.UserType,
			Country:         order.Country,
			ProductName:     products[i].Name,
			UnitPrice:       unitPrice,
			Quantity:        item.Quantity,
			Total:           lineTotal,
			PaymentMethod:   order.PaymentMethod,
			ShippingAddress: order.ShippingAddress,
		}
		if err := s.ledger.Add(ctx, record); err != nil {
			for _, r := range reserved {
				s.catalog.Release(r.ProductID, r.Quantity)
			}
			return nil, fmt.Errorf("record purchase: %w", err)
		}

		receipt.Lines = append(receipt.Lines, LineDto{
			ProductName: products[i].Name,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice,
			Total:       lineTotal,
		})
		receipt.Total += lineTotal
	}

	s.checkoutsCounter.Add(ctx, 1)
	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("transaction_id", transactionID),
		slog.String("user_email", order.UserEmail),
		slog.Int64("total", receipt.Total))
	return receipt, nil
}
