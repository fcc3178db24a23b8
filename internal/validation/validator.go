package validation

import (
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for CreateOrderRequest to reject
	// non-finite money values that survive JSON binding via scientific
	// notation edge cases.
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	if req.ShippingFee != nil && (math.IsNaN(*req.ShippingFee) || math.IsInf(*req.ShippingFee, 0)) {
		sl.ReportError(req.ShippingFee, "shipping_fee", "ShippingFee", "finite", "")
	}
	if req.TotalAmount != nil && (math.IsNaN(*req.TotalAmount) || math.IsInf(*req.TotalAmount, 0)) {
		sl.ReportError(req.TotalAmount, "total_amount", "TotalAmount", "finite", "")
	}
}
