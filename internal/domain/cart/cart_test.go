package cart

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saletrack/pos-checkout/internal/domain/product"
)

func newTestProduct(id string, price string, stock int) product.Product {
	return product.Product{
		ID:    id,
		SKU:   "SKU-" + id,
		Name:  "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func TestAddItem_NewLine(t *testing.T) {
	c := New(decimal.Zero)
	p := newTestProduct("p1", "10.00", 5)

	require.NoError(t, c.AddItem(p, 2))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("20.00").Equal(lines[0].Subtotal()))
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	c := New(decimal.Zero)
	p := newTestProduct("p1", "10.00", 10)

	require.NoError(t, c.AddItem(p, 3))
	require.NoError(t, c.AddItem(p, 2))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("50.00").Equal(c.Subtotal()))
}

func TestAddItem_AdditiveEquivalence(t *testing.T) {
	p := newTestProduct("p1", "7.25", 10)

	split := New(decimal.Zero)
	require.NoError(t, split.AddItem(p, 2))
	require.NoError(t, split.AddItem(p, 4))

	single := New(decimal.Zero)
	require.NoError(t, single.AddItem(p, 6))

	assert.Equal(t, single.Lines(), split.Lines())
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	c := New(decimal.Zero)
	p := newTestProduct("p1", "10.00", 5)

	err := c.AddItem(p, 0)
	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
	assert.Zero(t, c.Len())

	err = c.AddItem(p, -3)
	require.ErrorAs(t, err, &iqErr)
	assert.Zero(t, c.Len())
}

func TestAddItem_StockExceeded(t *testing.T) {
	c := New(decimal.Zero)
	p := newTestProduct("p1", "10.00", 3)

	err := c.AddItem(p, 4)
	var seErr *StockExceededError
	require.ErrorAs(t, err, &seErr)
	assert.Equal(t, 4, seErr.Requested)
	assert.Equal(t, 3, seErr.Available)
	assert.Zero(t, c.Len())
}

func TestAddItem_MergeExceedsStock(t *testing.T) {
	c := New(decimal.Zero)
	p := newTestProduct("p1", "10.00", 3)

	require.NoError(t, c.AddItem(p, 2))
	err := c.AddItem(p, 2)

	var seErr *StockExceededError
	require.ErrorAs(t, err, &seErr)
	// The failed merge must not change the existing line.
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestSetQuantity(t *testing.T) {
	c := New(decimal.Zero)
	p := newTestProduct("p1", "5.50", 10)
	require.NoError(t, c.AddItem(p, 1))

	require.NoError(t, c.SetQuantity("p1", 3))
	assert.Equal(t, 3, c.Lines()[0].Quantity)
	assert.True(t, decimal.RequireFromString("16.50").Equal(c.Subtotal()))

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, c.SetQuantity("p1", 0), &iqErr)

	var seErr *StockExceededError
	require.ErrorAs(t, c.SetQuantity("p1", 11), &seErr)
}

func TestSetQuantity_MissingLine(t *testing.T) {
	c := New(decimal.Zero)
	require.NoError(t, c.AddItem(newTestProduct("p1", "5.50", 10), 1))

	// A valid quantity for a product that has no line names the real
	// problem, not the quantity.
	err := c.SetQuantity("ghost", 1)
	require.ErrorIs(t, err, ErrLineNotFound)
	var iqErr *InvalidQuantityError
	assert.False(t, errors.As(err, &iqErr))
}

func TestRemoveItem(t *testing.T) {
	c := New(decimal.Zero)
	require.NoError(t, c.AddItem(newTestProduct("p1", "1.00", 5), 1))
	require.NoError(t, c.AddItem(newTestProduct("p2", "2.00", 5), 1))

	c.RemoveItem("p1")
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, "p2", c.Lines()[0].ProductID)

	// Absent product is a no-op.
	c.RemoveItem("ghost")
	assert.Equal(t, 1, c.Len())
}

func TestTotals_WithTax(t *testing.T) {
	c := New(decimal.RequireFromString("0.16"))
	require.NoError(t, c.AddItem(newTestProduct("p1", "100.00", 10), 1))

	assert.True(t, decimal.RequireFromString("100.00").Equal(c.Subtotal()))
	assert.True(t, decimal.RequireFromString("16.00").Equal(c.Tax()))
	assert.True(t, decimal.RequireFromString("116.00").Equal(c.Total()))
}

func TestTotals_InvariantUnderMutation(t *testing.T) {
	c := New(decimal.RequireFromString("0.08"))
	p1 := newTestProduct("p1", "10.00", 20)
	p2 := newTestProduct("p2", "5.50", 20)

	check := func() {
		sum := decimal.Zero
		for _, l := range c.Lines() {
			sum = sum.Add(l.Subtotal())
		}
		assert.True(t, sum.Equal(c.Subtotal()), "subtotal mismatch")
		assert.True(t, c.Subtotal().Add(c.Tax()).Equal(c.Total()), "total mismatch")
	}

	check()
	require.NoError(t, c.AddItem(p1, 2))
	check()
	require.NoError(t, c.AddItem(p2, 3))
	check()
	require.NoError(t, c.SetQuantity("p1", 7))
	check()
	c.RemoveItem("p2")
	check()
	c.Clear()
	check()
}

func TestLines_ReturnsCopy(t *testing.T) {
	c := New(decimal.Zero)
	require.NoError(t, c.AddItem(newTestProduct("p1", "1.00", 5), 1))

	lines := c.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestInsertionOrderPreserved(t *testing.T) {
	c := New(decimal.Zero)
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		require.NoError(t, c.AddItem(newTestProduct(id, "1.00", 5), 1))
	}

	lines := c.Lines()
	for i, id := range ids {
		assert.Equal(t, id, lines[i].ProductID)
	}
}
