package validation

// ItemRequest is a single cart-derived order line.
type ItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Color     string  `json:"color" validate:"required"`
	Size      string  `json:"size" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"required,gt=0"` // unit price at order time
}

// AddressRequest is the shipping address; every field is required.
type AddressRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Province string `json:"province" validate:"required"`
	District string `json:"district" validate:"required"`
	Ward     string `json:"ward" validate:"required"`
	Street   string `json:"street" validate:"required"`
}

// CreateOrderRequest is the payload for POST /orders/cash and /orders/vnpay.
// Fee and total are pointers so a literal 0 still counts as provided.
type CreateOrderRequest struct {
	Items           []ItemRequest  `json:"items" validate:"required,min=1,dive"`
	ShippingAddress AddressRequest `json:"shippingAddress" validate:"required"`
	ShippingFee     *float64       `json:"shipping_fee" validate:"required,gte=0"`
	TotalAmount     *float64       `json:"total_amount" validate:"required,gte=0"`
	PaymentMethod   string         `json:"paymentMethod" validate:"omitempty,oneof=cash vnpay"`
}
