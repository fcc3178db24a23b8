package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dinh7112004/order-service/internal/auth"
	"github.com/dinh7112004/order-service/internal/cart"
	"github.com/dinh7112004/order-service/internal/catalog"
	"github.com/dinh7112004/order-service/internal/notify"
)

// ErrProductNotFound indicates an order line references a product that
// does not exist (or no longer exists).
var ErrProductNotFound = errors.New("product not found")

// CreateOrderInput is a validated, cart-derived order request.
type CreateOrderInput struct {
	Items         []OrderItem
	Address       Address
	ShippingFee   float64
	TotalAmount   float64
	PaymentMethod PaymentMethod
}

// Service orchestrates the order lifecycle: creation, listing, status
// transitions and cancellation, plus the inventory and notification side
// effects each of those carries.
type Service struct {
	orders     *Store
	products   *catalog.Store
	carts      *cart.Store
	dispatcher *notify.Dispatcher
	log        *zap.Logger

	cartTimeout time.Duration
}

// NewService wires a Service.
func NewService(orders *Store, products *catalog.Store, carts *cart.Store, dispatcher *notify.Dispatcher, log *zap.Logger) *Service {
	return &Service{
		orders:      orders,
		products:    products,
		carts:       carts,
		dispatcher:  dispatcher,
		log:         log,
		cartTimeout: 5 * time.Second,
	}
}

// CreateOrder validates the input, checks stock availability (read-only,
// nothing is reserved) and persists a pending order. When clearCart is set
// the user's cart is emptied afterwards, fire-and-forget: a cart failure is
// logged, never surfaced, and never blocks the response.
func (s *Service) CreateOrder(ctx context.Context, ident auth.Identity, in CreateOrderInput, clearCart bool) (*Order, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", ErrInvalidInput)
	}

	items := make([]OrderItem, len(in.Items))
	for i, item := range in.Items {
		if item.ProductID == "" || item.Color == "" || item.Size == "" || item.Quantity <= 0 || item.Price <= 0 {
			return nil, fmt.Errorf("%w: item %d needs product_id, color, size, quantity and price", ErrInvalidInput, i)
		}

		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		v := p.Variation(item.Color, item.Size)
		if v == nil || v.Quantity < item.Quantity {
			remaining := 0
			if v != nil {
				remaining = v.Quantity
			}
			return nil, &catalog.InsufficientStockError{
				ProductID: p.ProductID,
				Name:      p.Name,
				Color:     item.Color,
				Size:      item.Size,
				Remaining: remaining,
			}
		}

		// freeze name alongside quantity and price
		item.Name = p.Name
		items[i] = item
	}

	if err := validateAddress(in.Address); err != nil {
		return nil, err
	}
	if in.TotalAmount < 0 || in.ShippingFee < 0 {
		return nil, fmt.Errorf("%w: shipping_fee and total_amount must be non-negative", ErrInvalidInput)
	}

	method := in.PaymentMethod
	if method == "" {
		method = PaymentCash
	}

	s.warnOnAmountMismatch(items, in.ShippingFee, in.TotalAmount, ident.UserID)

	order := Order{
		OrderID:       uuid.NewString(),
		UserID:        ident.UserID,
		Items:         items,
		Address:       in.Address,
		ShippingFee:   in.ShippingFee,
		TotalAmount:   in.TotalAmount,
		PaymentMethod: method,
		Status:        StatusPending,
		PaymentInfo:   map[string]string{},
	}

	saved, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	if clearCart {
		go s.clearCart(ident.UserID)
	}

	return saved, nil
}

func (s *Service) clearCart(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cartTimeout)
	defer cancel()
	if err := s.carts.Clear(ctx, userID); err != nil {
		s.log.Warn("failed to clear cart after order creation",
			zap.Error(err),
			zap.String("user_id", userID))
	}
}

// warnOnAmountMismatch compares the claimed total against the items
// subtotal plus shipping fee, in exact decimal arithmetic. Mismatches are
// logged for reconciliation but do not reject the order, matching the
// established client contract.
func (s *Service) warnOnAmountMismatch(items []OrderItem, shippingFee, total float64, userID string) {
	sum := decimal.NewFromFloat(shippingFee)
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	claimed := decimal.NewFromFloat(total)
	if !sum.Equal(claimed) {
		s.log.Warn("order total does not match items subtotal plus shipping fee",
			zap.String("user_id", userID),
			zap.String("computed", sum.String()),
			zap.String("claimed", claimed.String()))
	}
}

func validateAddress(a Address) error {
	if a.FullName == "" || a.PhoneNumber == "" || a.Province == "" || a.District == "" || a.Ward == "" || a.Street == "" {
		return fmt.Errorf("%w: shipping address needs fullName, phone, province, district, ward and street", ErrInvalidInput)
	}
	return nil
}

// UpdateStatus applies one edge of the transition table to the order.
// On pending -> confirmed every item's stock is decremented first,
// all-or-nothing; any shortfall aborts the whole transition. An admin
// moving an order into cancelled credits stock back, like Cancel. The new
// status is persisted with a compare-and-swap on the previous one, and a
// notification is dispatched afterwards, best-effort.
func (s *Service) UpdateStatus(ctx context.Context, ident auth.Identity, orderID string, newStatus Status) (*Order, error) {
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

	if order.Status.Terminal() {
		return nil, &InvalidTransitionError{From: order.Status, To: newStatus}
	}
	if !ValidStatus(newStatus) || !CanTransition(order.Status, newStatus) {
		return nil, &InvalidTransitionError{
			From:    order.Status,
			To:      newStatus,
			Allowed: NextStatuses(order.Status),
		}
	}

	var decremented bool
	if order.Status == StatusPending && newStatus == StatusConfirmed {
		if err := s.products.ApplyDeltas(ctx, stockDeltas(order.Items, -1)); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: order references a missing product", ErrProductNotFound)
			}
			return nil, err
		}
		decremented = true
	}
	if newStatus == StatusCancelled && ident.IsAdmin() {
		s.creditStockBack(ctx, order)
	}

	updatedAt, err := s.orders.UpdateStatus(ctx, orderID, order.Status, newStatus)
	if err != nil {
		if decremented {
			// the transition lost a race after stock was taken; give it back
			if creditErr := s.products.ApplyDeltas(ctx, stockDeltas(order.Items, 1)); creditErr != nil {
				s.log.Error("failed to credit stock back after lost status race",
					zap.Error(creditErr),
					zap.String("order_id", orderID))
			}
		}
		if errors.Is(err, ErrStatusMismatch) {
			fresh, _ := s.orders.Get(ctx, orderID)
			from := order.Status
			if fresh != nil {
				from = fresh.Status
			}
			return nil, &InvalidTransitionError{From: from, To: newStatus, Allowed: NextStatuses(from)}
		}
		return nil, err
	}

	order.Status = newStatus
	order.UpdatedAt = updatedAt
	s.dispatchStatusChange(ctx, order)
	return order, nil
}

// Cancel cancels the order. Owners may cancel only while the order is
// still pending; a privileged actor may cancel any non-terminal order and
// credits every item's stock back.
func (s *Service) Cancel(ctx context.Context, ident auth.Identity, orderID string) (*Order, error) {
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

	if order.Status.Terminal() {
		return nil, &InvalidTransitionError{From: order.Status, To: StatusCancelled}
	}
	if !ident.IsAdmin() {
		if order.UserID != ident.UserID {
			return nil, ErrUnauthorized
		}
		if order.Status != StatusPending {
			return nil, fmt.Errorf("%w: orders can only be cancelled while pending", ErrUnauthorized)
		}
	}

	if ident.IsAdmin() {
		s.creditStockBack(ctx, order)
	}

	updatedAt, err := s.orders.UpdateStatus(ctx, orderID, order.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrStatusMismatch) {
			fresh, _ := s.orders.Get(ctx, orderID)
			from := order.Status
			if fresh != nil {
				from = fresh.Status
			}
			return nil, &InvalidTransitionError{From: from, To: StatusCancelled, Allowed: NextStatuses(from)}
		}
		return nil, err
	}

	order.Status = StatusCancelled
	order.UpdatedAt = updatedAt
	s.dispatchStatusChange(ctx, order)
	return order, nil
}

// creditStockBack returns each item's quantity to its variation. Items
// whose product or variation no longer exists are skipped with a warning,
// the rest are credited in one transaction.
func (s *Service) creditStockBack(ctx context.Context, order *Order) {
	var deltas []catalog.Delta
	for _, item := range order.Items {
		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			s.log.Warn("failed to load product for stock credit",
				zap.Error(err),
				zap.String("order_id", order.OrderID),
				zap.String("product_id", item.ProductID))
			continue
		}
		if p == nil || p.Variation(item.Color, item.Size) == nil {
			s.log.Warn("product or variation missing, skipping stock credit",
				zap.String("order_id", order.OrderID),
				zap.String("product_id", item.ProductID),
				zap.String("color", item.Color),
				zap.String("size", item.Size))
			continue
		}
		deltas = append(deltas, catalog.Delta{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}
	if err := s.products.ApplyDeltas(ctx, deltas); err != nil {
		s.log.Error("failed to credit stock back on cancellation",
			zap.Error(err),
			zap.String("order_id", order.OrderID))
	}
}

func stockDeltas(items []OrderItem, sign int) []catalog.Delta {
	deltas := make([]catalog.Delta, len(items))
	for i, item := range items {
		deltas[i] = catalog.Delta{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Quantity:  sign * item.Quantity,
		}
	}
	return deltas
}

// dispatchStatusChange builds the notification payload for a persisted
// transition. The event carries the first item's image and an order-level
// summary name rather than just the first product's.
func (s *Service) dispatchStatusChange(ctx context.Context, order *Order) {
	var image string
	var summary string
	if len(order.Items) > 0 {
		first := order.Items[0]
		summary = first.Name
		if len(order.Items) > 1 {
			summary = fmt.Sprintf("%s and %d more", first.Name, len(order.Items)-1)
		}
		if p, err := s.products.Get(ctx, first.ProductID); err == nil && p != nil {
			image = p.Image
		}
	}

	s.dispatcher.OrderStatusChanged(ctx, notify.StatusChange{
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		NewStatus:   string(order.Status),
		UpdatedAt:   order.UpdatedAt,
		Image:       image,
		ProductName: summary,
	})
}
