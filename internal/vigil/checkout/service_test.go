package checkout

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mkravets/vigil/internal/vigil/catalog"
	"github.com/mkravets/vigil/internal/vigil/ledger"
	"github.com/mkravets/vigil/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *ledger.Ledger, *catalog.Store) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger)
	led := ledger.New(b, logger)
	cat := catalog.NewStore()
	cat.Create("Anti-Sleep Alarm", 2999, 10) // id 1
	cat.Create("Dash Camera HD", 14999, 2)   // id 2
	return NewService(cat, led, logger), led, cat
}

func validOrder(items ...ItemDto) CheckoutDto {
	return CheckoutDto{
		UserEmail:       "alice@example.com",
		UserName:        "Alice",
		UserType:        "driver",
		Country:         "DE",
		PaymentMethod:   "credit_card",
		ShippingAddress: "1 Main St",
		Items:           items,
	}
}

func Test_Checkout_Success(t *testing.T) {
	// given
	service, led, cat := newTestService()
	order := validOrder(
		ItemDto{ProductID: "1", Quantity: 2},
		ItemDto{ProductID: "2", Quantity: 1},
	)

	// when
	receipt, err := service.Checkout(context.Background(), order)

	// then
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TransactionID)
	require.Len(t, receipt.Lines, 2)
	assert.Equal(t, int64(2*2999+14999), receipt.Total)

	// one ledger record per line item, sharing the transaction id
	records := led.Purchases()
	require.Len(t, records, 2)
	assert.Equal(t, receipt.TransactionID, records[0].TransactionID)
	assert.Equal(t, receipt.TransactionID, records[1].TransactionID)

	// stock was reserved
	p, err := cat.FindByID("1")
	require.NoError(t, err)
	assert.Equal(t, int32(8), p.Stock)
}

func Test_Checkout_VoucherDiscount(t *testing.T) {
	testCases := []struct {
		name          string
		voucher       string
		expectedTotal int64
		expectError   error
	}{
		{name: "Success - no voucher", voucher: "", expectedTotal: 2999},
		{name: "Success - 10 percent off", voucher: "REST10", expectedTotal: 2699}, // 2999*90/100
		{name: "Success - 20 percent off", voucher: "FLEET20", expectedTotal: 2399},
		{name: "Error - unknown voucher", voucher: "BOGUS", expectError: ErrUnknownVoucher},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service, led, _ := newTestService()
			order := validOrder(ItemDto{ProductID: "1", Quantity: 1})
			order.Voucher = tc.voucher

			// when
			receipt, err := service.Checkout(context.Background(), order)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, receipt)
				assert.Empty(t, led.Purchases())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTotal, receipt.Total)
		})
	}
}

func Test_Checkout_ProductNotFound(t *testing.T) {
	// given
	service, led, _ := newTestService()
	order := validOrder(ItemDto{ProductID: "99", Quantity: 1})

	// when
	receipt, err := service.Checkout(context.Background(), order)

	// then
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.Nil(t, receipt)
	assert.Empty(t, led.Purchases())
}

func Test_Checkout_InsufficientStock_ReleasesReserved(t *testing.T) {
	// given: first line fits, second exceeds stock
	service, led, cat := newTestService()
	order := validOrder(
		ItemDto{ProductID: "1", Quantity: 2},
		ItemDto{ProductID: "2", Quantity: 3},
	)

	// when
	receipt, err := service.Checkout(context.Background(), order)

	// then: nothing recorded and the first line's reservation was rolled back
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Nil(t, receipt)
	assert.Empty(t, led.Purchases())
	p, findErr := cat.FindByID("1")
	require.NoError(t, findErr)
	assert.Equal(t, int32(10), p.Stock)
}
