package orders

import (
	"context"

	"go.uber.org/zap"

	"github.com/dinh7112004/order-service/internal/auth"
	"github.com/dinh7112004/order-service/internal/catalog"
)

// ItemView is an order line enriched with current product metadata for
// display. UnitPrice prefers the price frozen on the order line.
type ItemView struct {
	OrderItem
	ProductName string  `json:"productName"`
	ImageURL    string  `json:"imageUrl"`
	UnitPrice   float64 `json:"unitPrice"`
}

// OrderView is an order whose items carry display metadata.
type OrderView struct {
	Order
	Items []ItemView `json:"items"`
}

// GetOrder returns one order with enriched items. Only the owner or a
// privileged actor may read it.
func (s *Service) GetOrder(ctx context.Context, ident auth.Identity, orderID string) (*OrderView, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthenticated
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if !ident.IsAdmin() && order.UserID != ident.UserID {
		return nil, ErrUnauthorized
	}
	view := s.enrich(ctx, *order, map[string]*catalog.Product{})
	return &view, nil
}

// ListMine returns the caller's orders newest first, optionally filtered
// by status. An unknown status value means no filter, matching the
// established client contract.
func (s *Service) ListMine(ctx context.Context, ident auth.Identity, statusFilter string) ([]OrderView, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthenticated
	}
	list, err := s.orders.ListByUser(ctx, ident.UserID, normalizeFilter(statusFilter))
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, list), nil
}

// ListAll returns every order for back-office use. Privileged actors only.
func (s *Service) ListAll(ctx context.Context, ident auth.Identity, statusFilter string, ascending bool) ([]OrderView, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !ident.IsAdmin() {
		return nil, ErrUnauthorized
	}
	list, err := s.orders.ListAll(ctx, normalizeFilter(statusFilter), ascending)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, list), nil
}

func normalizeFilter(status string) Status {
	if ValidStatus(Status(status)) {
		return Status(status)
	}
	return ""
}

func (s *Service) enrichAll(ctx context.Context, list []Order) []OrderView {
	cache := map[string]*catalog.Product{}
	views := make([]OrderView, len(list))
	for i, o := range list {
		views[i] = s.enrich(ctx, o, cache)
	}
	return views
}

// enrich attaches product name, image and unit price to each item. A
// missing product is tolerated; its line keeps the frozen name and price.
func (s *Service) enrich(ctx context.Context, order Order, cache map[string]*catalog.Product) OrderView {
	items := make([]ItemView, len(order.Items))
	for i, item := range order.Items {
		p, ok := cache[item.ProductID]
		if !ok {
			var err error
			p, err = s.products.Get(ctx, item.ProductID)
			if err != nil {
				s.log.Warn("failed to load product for order view",
					zap.Error(err),
					zap.String("order_id", order.OrderID),
					zap.String("product_id", item.ProductID))
				p = nil
			}
			cache[item.ProductID] = p
		}

		view := ItemView{OrderItem: item, UnitPrice: item.Price}
		switch {
		case p != nil:
			view.ProductName = p.Name
			view.ImageURL = p.Image
			if view.UnitPrice == 0 {
				view.UnitPrice = p.Price
			}
		case item.Name != "":
			view.ProductName = item.Name
		default:
			view.ProductName = "Product no longer exists"
		}
		items[i] = view
	}
	return OrderView{Order: order, Items: items}
}
