package validation

import (
	"fmt"
	"reflect"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/orders"
)

// New returns a configured validator with decimal support and the
// struct-level total check registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// lets gte/gt tags apply to money fields
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	// ensure a claimed total matches the sum of (price * quantity) of items
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// checkoutStructValidation verifies the claimed Total equals the items sum
// to the kopeck.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)
	if req.Total == nil {
		return
	}

	sum := orders.Total(req.CartItems())
	if !sum.Round(2).Equal(req.Total.Round(2)) {
		sl.ReportError(req.Total, "total", "Total", "total_match_items",
			fmt.Sprintf("items sum %s != total %s", sum.StringFixed(2), req.Total.StringFixed(2)))
	}
}
