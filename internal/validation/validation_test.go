package validation

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Items: []ItemRequest{
			{ProductID: "p1", Color: "red", Size: "M", Quantity: 2, Price: 10.0},
			{ProductID: "p2", Color: "blue", Size: "L", Quantity: 1, Price: 5.5},
		},
		ShippingAddress: AddressRequest{
			FullName: "Nguyen Van A",
			Phone:    "0901234567",
			Province: "Ha Noi",
			District: "Cau Giay",
			Ward:     "Dich Vong",
			Street:   "1 Tran Thai Tong",
		},
		ShippingFee:   f(2),
		TotalAmount:   f(27.5),
		PaymentMethod: "cash",
	}
}

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()

	if err := v.Struct(validRequest()); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreateOrderRequest_ZeroFeeIsValid(t *testing.T) {
	v := New()

	req := validRequest()
	req.ShippingFee = f(0)
	if err := v.Struct(req); err != nil {
		t.Fatalf("a zero shipping fee must pass, got error: %v", err)
	}
}

func TestCreateOrderRequest_PaymentMethodOptional(t *testing.T) {
	v := New()

	req := validRequest()
	req.PaymentMethod = ""
	if err := v.Struct(req); err != nil {
		t.Fatalf("omitted payment method must pass, got error: %v", err)
	}

	req.PaymentMethod = "paypal"
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for unknown payment method, got nil")
	}
}

func TestCreateOrderRequest_NoItems(t *testing.T) {
	v := New()

	req := validRequest()
	req.Items = nil
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for empty items, got nil")
	}
}

func TestCreateOrderRequest_ItemFieldsRequired(t *testing.T) {
	v := New()

	cases := []struct {
		name   string
		mutate func(*ItemRequest)
	}{
		{"missing product id", func(i *ItemRequest) { i.ProductID = "" }},
		{"missing color", func(i *ItemRequest) { i.Color = "" }},
		{"missing size", func(i *ItemRequest) { i.Size = "" }},
		{"zero quantity", func(i *ItemRequest) { i.Quantity = 0 }},
		{"negative quantity", func(i *ItemRequest) { i.Quantity = -1 }},
		{"zero price", func(i *ItemRequest) { i.Price = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req.Items[0])
			if err := v.Struct(req); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestCreateOrderRequest_AddressFieldsRequired(t *testing.T) {
	v := New()

	cases := []struct {
		name   string
		mutate func(*AddressRequest)
	}{
		{"missing full name", func(a *AddressRequest) { a.FullName = "" }},
		{"missing phone", func(a *AddressRequest) { a.Phone = "" }},
		{"missing province", func(a *AddressRequest) { a.Province = "" }},
		{"missing district", func(a *AddressRequest) { a.District = "" }},
		{"missing ward", func(a *AddressRequest) { a.Ward = "" }},
		{"missing street", func(a *AddressRequest) { a.Street = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req.ShippingAddress)
			if err := v.Struct(req); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestCreateOrderRequest_MissingAmounts(t *testing.T) {
	v := New()

	req := validRequest()
	req.ShippingFee = nil
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for missing shipping fee, got nil")
	}

	req = validRequest()
	req.TotalAmount = nil
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for missing total, got nil")
	}

	req = validRequest()
	req.TotalAmount = f(-5)
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for negative total, got nil")
	}
}

func TestCreateOrderRequest_NonFiniteAmounts(t *testing.T) {
	v := New()

	req := validRequest()
	req.TotalAmount = f(math.NaN())
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for NaN total, got nil")
	}

	req = validRequest()
	req.ShippingFee = f(math.Inf(1))
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for infinite shipping fee, got nil")
	}
}
