package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

// createOrderStructValidation checks the total against the items and the delivery fee, and
// that an address is given exactly when the order is delivered.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	if len(req.Items) > 0 && !orders.TotalMatches(req.OrderItems(), req.DeliveryType, req.TotalAmount) {
		want := orders.ExpectedTotal(req.OrderItems(), req.DeliveryType).StringFixed(2)
		sl.ReportError(req.TotalAmount, "total_amount", "TotalAmount", "total_matches_items", want)
	}

	hasAddress := strings.TrimSpace(req.DeliveryAddress) != ""
	switch {
	case req.DeliveryType == orders.DeliveryDelivery && !hasAddress:
		sl.ReportError(req.DeliveryAddress, "delivery_address", "DeliveryAddress", "required_for_delivery", "")
	case req.DeliveryType == orders.DeliveryPickup && hasAddress:
		sl.ReportError(req.DeliveryAddress, "delivery_address", "DeliveryAddress", "excluded_for_pickup", "")
	}
}

// Check runs v over s and converts failures into an *errorx.ValidationError keyed by
// json field path.
func Check(v *validatorv10.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate: %w", err)
	}
	return &errorx.ValidationError{Fields: fieldMessages(ve)}
}

func fieldMessages(ve validatorv10.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// fieldPath drops the root struct name: "CreateOrderRequest.items[0].name" -> "items[0].name".
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "total_matches_items":
		return "must equal the item total plus delivery fee (" + fe.Param() + ")"
	case "required_for_delivery":
		return "is required for delivery orders"
	case "excluded_for_pickup":
		return "must be empty for pickup orders"
	default:
		return fe.Error()
	}
}
