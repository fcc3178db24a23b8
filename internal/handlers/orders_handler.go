package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dinh7112004/order-service/internal/auth"
	internalaws "github.com/dinh7112004/order-service/internal/aws"
	"github.com/dinh7112004/order-service/internal/cart"
	"github.com/dinh7112004/order-service/internal/catalog"
	"github.com/dinh7112004/order-service/internal/idempotency"
	"github.com/dinh7112004/order-service/internal/notify"
	"github.com/dinh7112004/order-service/internal/orders"
	"github.com/dinh7112004/order-service/internal/validation"
)

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	DynamoDBClient     internalaws.DynamoDBAPI
	SQSClient          internalaws.SQSAPI
	OrdersTable        string
	ProductsTable      string
	NotificationsTable string
	CartsTable         string
	IdempotencyTable   string // empty disables idempotency-key replay
	TTLWindow          time.Duration
	QueueURL           string
	Realtime           notify.Emitter // nil when no socket gateway is deployed
	Logger             *zap.Logger
}

// RegisterOrdersRoutes registers routes for the order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ordersStore := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)
	productsStore := catalog.NewStore(cfg.DynamoDBClient, cfg.ProductsTable)
	cartsStore := cart.NewStore(cfg.DynamoDBClient, cfg.CartsTable)
	notifStore := notify.NewStore(cfg.DynamoDBClient, cfg.NotificationsTable)

	var events notify.EventSender
	if cfg.SQSClient != nil && cfg.QueueURL != "" {
		events = internalaws.NewPublisher(cfg.SQSClient, cfg.QueueURL)
	}
	dispatcher := notify.NewDispatcher(notifStore, cfg.Realtime, events, log)
	svc := orders.NewService(ordersStore, productsStore, cartsStore, dispatcher, log)

	var idemp *idempotency.Store
	if cfg.IdempotencyTable != "" {
		ttl := cfg.TTLWindow
		if ttl == 0 {
			ttl = 48 * time.Hour
		}
		idemp = idempotency.NewStore(cfg.DynamoDBClient, cfg.IdempotencyTable, ttl)
	}

	r.Use(auth.Middleware())

	r.POST("/orders/cash", createOrderHandler(svc, idemp, v, log, "", true))
	r.POST("/orders/vnpay", createOrderHandler(svc, idemp, v, log, orders.PaymentVNPay, false))

	r.GET("/orders/mine", func(c *gin.Context) {
		ident := auth.FromContext(c)
		views, err := svc.ListMine(c.Request.Context(), ident, c.Query("status"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, views)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		ident := auth.FromContext(c)
		view, err := svc.GetOrder(c.Request.Context(), ident, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, view)
	})

	r.PATCH("/orders/:id/status", func(c *gin.Context) {
		ident := auth.FromContext(c)

		var req struct {
			Status string `json:"status" validate:"required"`
		}
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		order, err := svc.UpdateStatus(c.Request.Context(), ident, c.Param("id"), orders.Status(req.Status))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "order status updated",
			"order":   order,
		})
	})

	r.PATCH("/orders/:id/cancel", func(c *gin.Context) {
		ident := auth.FromContext(c)
		order, err := svc.Cancel(c.Request.Context(), ident, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "order cancelled",
			"order":   order,
		})
	})

	r.GET("/orders", func(c *gin.Context) {
		ident := auth.FromContext(c)
		ascending := c.Query("sort") == "asc"
		views, err := svc.ListAll(c.Request.Context(), ident, c.Query("status"), ascending)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, views)
	})
}

// createOrderHandler serves both creation routes. forcedMethod pins the
// payment method for the gateway route; the cash route honors the request
// body's method, defaulting to cash. Only the cash route clears the cart.
// When the client supplies an Idempotency-Key header, a retry of the same
// request replays the first attempt's response instead of creating a
// duplicate order.
func createOrderHandler(svc *orders.Service, idemp *idempotency.Store, v *validatorv10.Validate, log *zap.Logger, forcedMethod orders.PaymentMethod, clearCart bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ident := auth.FromContext(c)

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		idempKey := c.GetHeader("Idempotency-Key")
		if idemp != nil && idempKey != "" {
			created, err := idemp.CreateIfNotExists(ctx, idempKey)
			if err != nil {
				writeError(c, log, err)
				return
			}
			if !created {
				replayIdempotent(c, log, idemp, idempKey)
				return
			}
		}

		items := make([]orders.OrderItem, len(req.Items))
		for i, it := range req.Items {
			items[i] = orders.OrderItem{
				ProductID: it.ProductID,
				Color:     it.Color,
				Size:      it.Size,
				Quantity:  it.Quantity,
				Price:     it.Price,
			}
		}

		method := forcedMethod
		if method == "" {
			method = orders.PaymentMethod(req.PaymentMethod)
		}

		in := orders.CreateOrderInput{
			Items: items,
			Address: orders.Address{
				FullName:    req.ShippingAddress.FullName,
				PhoneNumber: req.ShippingAddress.Phone,
				Province:    req.ShippingAddress.Province,
				District:    req.ShippingAddress.District,
				Ward:        req.ShippingAddress.Ward,
				Street:      req.ShippingAddress.Street,
			},
			ShippingFee:   *req.ShippingFee,
			TotalAmount:   *req.TotalAmount,
			PaymentMethod: method,
		}

		order, err := svc.CreateOrder(ctx, ident, in, clearCart)
		if err != nil {
			if idemp != nil && idempKey != "" {
				if markErr := idemp.MarkFailed(ctx, idempKey, err.Error()); markErr != nil {
					log.Warn("failed to mark idempotency record failed", zap.Error(markErr))
				}
			}
			writeError(c, log, err)
			return
		}

		if idemp != nil && idempKey != "" {
			body, _ := json.Marshal(order)
			if markErr := idemp.MarkDone(ctx, idempKey, order.OrderID, string(body), http.StatusCreated); markErr != nil {
				log.Warn("failed to mark idempotency record done", zap.Error(markErr))
			}
		}
		c.JSON(http.StatusCreated, order)
	}
}

// replayIdempotent answers a duplicate create request from the stored
// idempotency record.
func replayIdempotent(c *gin.Context, log *zap.Logger, idemp *idempotency.Store, key string) {
	rec, err := idemp.Get(c.Request.Context(), key)
	if err != nil {
		writeError(c, log, err)
		return
	}
	if rec == nil {
		// conditional put failed but no record found; treat as transient
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusConflict, gin.H{"message": "previous attempt failed, retry with a new idempotency key"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

// writeError maps domain errors onto HTTP responses. Anything outside the
// taxonomy is logged server-side and surfaced as a generic 500.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var transitionErr *orders.InvalidTransitionError
	var stockErr *catalog.InsufficientStockError

	switch {
	case errors.Is(err, orders.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not authenticated"})
	case errors.Is(err, orders.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
	case errors.Is(err, orders.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   stockErr.Error(),
			"remaining": stockErr.Remaining,
		})
	case errors.As(err, &transitionErr):
		body := gin.H{"message": transitionErr.Error()}
		if len(transitionErr.Allowed) > 0 {
			body["valid_next"] = transitionErr.Allowed
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, orders.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		log.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
