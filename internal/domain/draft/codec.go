package draft

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/cart"
	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
)

// schemaVersion is the cache payload version. The draft is stored as one
// versioned payload so the customer, cart, method, and details can never get
// out of sync under a partial write.
const schemaVersion = 1

// ErrSchemaVersion is returned when a cached payload carries an unsupported
// schema version.
var ErrSchemaVersion = errors.New("unsupported draft schema version")

// Encode serializes the draft into its versioned cache payload.
func Encode(d *Draft) ([]byte, error) {
	var e jx.Encoder

	e.ObjStart()
	e.FieldStart("v")
	e.Int(schemaVersion)

	e.FieldStart("customer")
	if d.customer == nil {
		e.Null()
	} else {
		encodeCustomer(&e, d.customer)
	}

	e.FieldStart("method")
	e.Str(string(d.method))

	e.FieldStart("details")
	e.ObjStart()
	// Map order is not significant; decode rebuilds the mapping.
	for k, v := range d.details {
		e.FieldStart(k)
		e.Str(v)
	}
	e.ObjEnd()

	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range d.cart.Lines() {
		encodeLine(&e, l)
	}
	e.ArrEnd()

	e.ObjEnd()
	return e.Bytes(), nil
}

func encodeCustomer(e *jx.Encoder, c *customer.Customer) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("idType")
	e.Str(string(c.IDType))
	e.FieldStart("idNumber")
	e.Str(c.IDNumber)
	e.FieldStart("email")
	e.Str(c.Email)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(l.ProductID)
	e.FieldStart("name")
	e.Str(l.Name)
	e.FieldStart("unitPrice")
	e.Str(l.UnitPrice.String())
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("stock")
	e.Int(l.Stock)
	e.ObjEnd()
}

// Decode rebuilds a draft from its cache payload. taxRate must match the
// configured rate so derived totals stay consistent with a fresh draft.
func Decode(data []byte, taxRate decimal.Decimal) (*Draft, error) {
	out := New(taxRate)
	version := -1
	var lines []cart.Line

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "v":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			version = v
			return nil
		case "customer":
			if d.Next() == jx.Null {
				return d.Null()
			}
			c, err := decodeCustomer(d)
			if err != nil {
				return errors.Wrap(err, "customer")
			}
			out.customer = c
			return nil
		case "method":
			raw, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "method")
			}
			m, err := payment.ParseMethod(raw)
			if err != nil {
				return err
			}
			out.method = m
			return nil
		case "details":
			return d.Obj(func(d *jx.Decoder, field string) error {
				v, err := d.Str()
				if err != nil {
					return errors.Wrapf(err, "detail %q", field)
				}
				out.details[field] = v
				return nil
			})
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				lines = append(lines, l)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode draft")
	}

	if version != schemaVersion {
		return nil, errors.Wrapf(ErrSchemaVersion, "got %d, want %d", version, schemaVersion)
	}

	out.cart.Restore(lines)
	return out, nil
}

func decodeCustomer(d *jx.Decoder) (*customer.Customer, error) {
	var c customer.Customer
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "idType":
			var raw string
			if raw, err = d.Str(); err == nil {
				c.IDType, err = customer.ParseIDType(raw)
			}
		case "idNumber":
			c.IDNumber, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		case "phone":
			c.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeLine(d *jx.Decoder) (cart.Line, error) {
	var l cart.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			l.ProductID, err = d.Str()
		case "name":
			l.Name, err = d.Str()
		case "unitPrice":
			var raw string
			if raw, err = d.Str(); err == nil {
				l.UnitPrice, err = decimal.NewFromString(raw)
			}
		case "quantity":
			l.Quantity, err = d.Int()
		case "stock":
			l.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return l, err
}
