package supplier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurchaseOrder_Validate(t *testing.T) {
	assert.ErrorIs(t, (&PurchaseOrder{}).Validate(), ErrNoLines)
	assert.ErrorIs(t, (&PurchaseOrder{Lines: []PurchaseLine{{Quantity: 1}}}).Validate(), ErrInvalidSKU)
	assert.ErrorIs(t, (&PurchaseOrder{Lines: []PurchaseLine{{SKU: "A", Quantity: 0}}}).Validate(), ErrInvalidQuantity)
	assert.NoError(t, (&PurchaseOrder{Lines: []PurchaseLine{{SKU: "A", Quantity: 2}}}).Validate())
}

func TestStockLevel_CanFulfil(t *testing.T) {
	s := StockLevel{Available: 3}
	assert.True(t, s.CanFulfil(3))
	assert.False(t, s.CanFulfil(4))
}
