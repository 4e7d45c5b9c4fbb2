package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_CreateAndFind(t *testing.T) {
	// given
	s := NewStore()

	// when
	created := s.Create("Dash Camera HD", 14999, 10)

	// then
	found, err := s.FindByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dash Camera HD", found.Name)
	assert.Equal(t, int64(14999), found.Price)
	assert.Equal(t, int32(10), found.Stock)
}

func Test_Store_FindByID_NotFound(t *testing.T) {
	// given
	s := NewStore()

	// when
	_, err := s.FindByID("42")

	// then
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func Test_Store_FindAll_Ordered(t *testing.T) {
	// given
	s := NewStoreWithDefaults()

	// when
	list := s.FindAll()

	// then
	require.Len(t, list, 5)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "Anti-Sleep Alarm", list[0].Name)
}

func Test_Store_Reserve(t *testing.T) {
	testCases := []struct {
		name          string
		productID     string
		quantity      int32
		expectError   error
		expectedStock int32
	}{
		{name: "Success - stock decremented", productID: "1", quantity: 3, expectedStock: 7},
		{name: "Success - exact stock", productID: "1", quantity: 10, expectedStock: 0},
		{name: "Error - insufficient stock", productID: "1", quantity: 11, expectError: ErrInsufficientStock, expectedStock: 10},
		{name: "Error - unknown product", productID: "99", quantity: 1, expectError: ErrProductNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := NewStore()
			s.Create("Anti-Sleep Alarm", 2999, 10)

			// when
			err := s.Reserve(tc.productID, tc.quantity)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
			} else {
				require.NoError(t, err)
			}
			if tc.productID == "1" {
				p, err := s.FindByID("1")
				require.NoError(t, err)
				assert.Equal(t, tc.expectedStock, p.Stock)
			}
		})
	}
}
