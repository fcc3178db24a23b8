package catalog

// Variation is a (color, size) stock-tracked sub-unit of a product.
type Variation struct {
	Color    string `dynamodbav:"color" json:"color"`
	Size     string `dynamodbav:"size" json:"size"`
	Quantity int    `dynamodbav:"quantity" json:"quantity"`
}

// Product is the item stored in the products DynamoDB table. Version is an
// optimistic-lock counter bumped on every stock write.
type Product struct {
	ProductID  string      `dynamodbav:"product_id" json:"product_id"` // PK
	Name       string      `dynamodbav:"name" json:"name"`
	Image      string      `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Price      float64     `dynamodbav:"price" json:"price"`
	Quantity   int         `dynamodbav:"quantity" json:"quantity"` // total across variations
	Variations []Variation `dynamodbav:"variations" json:"variations"`
	Version    int64       `dynamodbav:"version" json:"-"`
}

// Variation returns a pointer into p.Variations for the matching
// (color, size) pair, or nil when the product has no such variant.
func (p *Product) Variation(color, size string) *Variation {
	for i := range p.Variations {
		v := &p.Variations[i]
		if v.Color == color && v.Size == size {
			return v
		}
	}
	return nil
}
