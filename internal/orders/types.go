package orders

import "time"

// PaymentMethod values accepted at order creation.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentVNPay PaymentMethod = "vnpay"
)

// Address is the shipping destination. All fields are required.
type Address struct {
	FullName    string `dynamodbav:"full_name" json:"full_name"`
	PhoneNumber string `dynamodbav:"phone_number" json:"phone_number"`
	Province    string `dynamodbav:"province" json:"province"`
	District    string `dynamodbav:"district" json:"district"`
	Ward        string `dynamodbav:"ward" json:"ward"`
	Street      string `dynamodbav:"street" json:"street"`
}

// OrderItem is one line of an order. Quantity and Price are frozen at
// creation time; later product price changes never touch existing orders.
type OrderItem struct {
	ProductID string  `dynamodbav:"product_id" json:"product_id"`
	Name      string  `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Color     string  `dynamodbav:"color" json:"color"`
	Size      string  `dynamodbav:"size" json:"size"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	Price     float64 `dynamodbav:"price" json:"price"`
}

// Order is the item stored in the orders DynamoDB table. Orders are never
// deleted; terminal statuses close them out.
type Order struct {
	OrderID       string            `dynamodbav:"order_id" json:"order_id"` // PK
	UserID        string            `dynamodbav:"user_id" json:"user_id"`
	Items         []OrderItem       `dynamodbav:"items" json:"items"`
	Address       Address           `dynamodbav:"address" json:"address"`
	ShippingFee   float64           `dynamodbav:"shipping_fee" json:"shipping_fee"`
	TotalAmount   float64           `dynamodbav:"total_amount" json:"total_amount"`
	PaymentMethod PaymentMethod     `dynamodbav:"payment_method" json:"payment_method"`
	Status        Status            `dynamodbav:"status" json:"status"`
	PaymentInfo   map[string]string `dynamodbav:"payment_info,omitempty" json:"payment_info,omitempty"`
	CreatedAt     time.Time         `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `dynamodbav:"updated_at" json:"updated_at"`
}
