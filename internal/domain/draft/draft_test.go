package draft

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
)

func testCustomer() customer.Customer {
	return customer.Customer{
		ID:       "c1",
		Name:     "Maria Perez",
		IDType:   customer.IDTypeNational,
		IDNumber: "12345678",
		Email:    "maria@example.com",
	}
}

func testProduct(id, price string, stock int) product.Product {
	return product.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func readyDraft(t *testing.T) *Draft {
	t.Helper()
	d := New(decimal.Zero)
	require.NoError(t, d.SelectCustomer(testCustomer()))
	require.NoError(t, d.AddItem(testProduct("p1", "10.00", 10), 2))
	return d
}

func TestStateProgression(t *testing.T) {
	d := New(decimal.Zero)
	assert.Equal(t, StateEmpty, d.State())

	require.NoError(t, d.SelectCustomer(testCustomer()))
	assert.Equal(t, StateCustomerSelected, d.State())

	require.NoError(t, d.AddItem(testProduct("p1", "10.00", 10), 1))
	// Cash needs no details, so the draft is immediately submittable.
	assert.Equal(t, StatePaymentReady, d.State())

	require.NoError(t, d.SelectMethod(payment.MethodMobile))
	assert.Equal(t, StateHasItems, d.State())

	require.NoError(t, d.SetDetail(payment.FieldPhoneNumber, "04141234567"))
	require.NoError(t, d.SetDetail(payment.FieldBank, "0102"))
	require.NoError(t, d.SetDetail(payment.FieldReference, "000123"))
	assert.Equal(t, StatePaymentReady, d.State())
}

func TestCanSubmit_Gates(t *testing.T) {
	d := New(decimal.Zero)
	assert.False(t, d.CanSubmit(), "empty draft")

	require.NoError(t, d.AddItem(testProduct("p1", "10.00", 10), 1))
	assert.False(t, d.CanSubmit(), "items but no customer")

	require.NoError(t, d.SelectCustomer(testCustomer()))
	assert.True(t, d.CanSubmit(), "cash with customer and items")

	require.NoError(t, d.SelectMethod(payment.MethodBankTransfer))
	assert.False(t, d.CanSubmit(), "bank transfer without details")

	require.NoError(t, d.RemoveItem("p1"))
	require.NoError(t, d.SelectMethod(payment.MethodCash))
	assert.False(t, d.CanSubmit(), "customer but empty cart")
}

func TestCanSubmit_CashAmountAdvisory(t *testing.T) {
	d := readyDraft(t) // total 20.00
	require.NoError(t, d.SetDetail(payment.FieldAmountReceived, "15.00"))
	assert.False(t, d.CanSubmit(), "short cash payment blocks confirmation")

	require.NoError(t, d.SetDetail(payment.FieldAmountReceived, "50.00"))
	assert.True(t, d.CanSubmit())

	require.NoError(t, d.SetDetail(payment.FieldAmountReceived, "not-a-number"))
	assert.False(t, d.CanSubmit())

	// No amount entered at all is fine: the field is optional.
	require.NoError(t, d.SetDetail(payment.FieldAmountReceived, ""))
	assert.True(t, d.CanSubmit())
}

func TestSelectMethod_ClearsDetails(t *testing.T) {
	d := New(decimal.Zero)
	require.NoError(t, d.SelectMethod(payment.MethodMobile))
	require.NoError(t, d.SetDetail(payment.FieldPhoneNumber, "04141234567"))
	require.NoError(t, d.SetDetail(payment.FieldBank, "0102"))
	require.NoError(t, d.SetDetail(payment.FieldReference, "000123"))

	require.NoError(t, d.SelectMethod(payment.MethodBankTransfer))
	assert.Empty(t, d.Details())

	// Switching back does not resurrect the old fields either.
	require.NoError(t, d.SelectMethod(payment.MethodMobile))
	assert.Empty(t, d.Details())
}

func TestSelectCustomer_Replaces(t *testing.T) {
	d := New(decimal.Zero)
	require.NoError(t, d.SelectCustomer(testCustomer()))

	other := customer.Customer{ID: "c2", Name: "Pedro", IDType: customer.IDTypePassport, IDNumber: "A99"}
	require.NoError(t, d.SelectCustomer(other))

	got := d.Customer()
	require.NotNil(t, got)
	assert.Equal(t, "c2", got.ID)
}

func TestMutationsRejectedWhileSubmitting(t *testing.T) {
	d := readyDraft(t)
	require.NoError(t, d.BeginSubmit())
	assert.Equal(t, StateSubmitting, d.State())

	assert.ErrorIs(t, d.SelectCustomer(testCustomer()), ErrSubmitting)
	assert.ErrorIs(t, d.AddItem(testProduct("p2", "1.00", 5), 1), ErrSubmitting)
	assert.ErrorIs(t, d.SetQuantity("p1", 1), ErrSubmitting)
	assert.ErrorIs(t, d.RemoveItem("p1"), ErrSubmitting)
	assert.ErrorIs(t, d.SelectMethod(payment.MethodMobile), ErrSubmitting)
	assert.ErrorIs(t, d.SetDetail(payment.FieldBank, "0102"), ErrSubmitting)
	assert.ErrorIs(t, d.BeginSubmit(), ErrSubmitting)

	d.EndSubmit()
	assert.NoError(t, d.SetDetail(payment.FieldAmountReceived, "30.00"))
}

func TestClear(t *testing.T) {
	d := readyDraft(t)
	require.NoError(t, d.SetDetail(payment.FieldAmountReceived, "50.00"))

	d.Clear()

	assert.Nil(t, d.Customer())
	assert.Empty(t, d.Lines())
	assert.Equal(t, payment.DefaultMethod, d.Method())
	assert.Empty(t, d.Details())
	assert.Equal(t, StateEmpty, d.State())
}

func TestRestoreCustomer(t *testing.T) {
	d := New(decimal.Zero)
	c := testCustomer()

	d.RestoreCustomer(&c)
	require.NotNil(t, d.Customer())
	assert.Equal(t, "c1", d.Customer().ID)

	// A restore never overwrites an existing selection.
	other := customer.Customer{ID: "c2", IDType: customer.IDTypeOther, IDNumber: "x"}
	d.RestoreCustomer(&other)
	assert.Equal(t, "c1", d.Customer().ID)

	d.RestoreCustomer(nil)
	assert.Equal(t, "c1", d.Customer().ID)
}
