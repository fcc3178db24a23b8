package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dinh7112004/order-service/internal/aws"
	"github.com/dinh7112004/order-service/internal/config"
	"github.com/dinh7112004/order-service/internal/handlers"
	"github.com/dinh7112004/order-service/internal/notify"
	"github.com/dinh7112004/order-service/internal/realtime"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	var emitter notify.Emitter
	if cfg.Redis.Addr != "" {
		pub := realtime.NewPublisher(cfg.Redis.Addr,
			realtime.WithPassword(cfg.Redis.Password),
			realtime.WithDB(cfg.Redis.DB),
		)
		defer pub.Close()
		emitter = pub
	}

	handlerCfg := handlers.HandlerConfig{
		DynamoDBClient:     clients.DynamoDB,
		SQSClient:          clients.SQS,
		OrdersTable:        cfg.Tables.Orders,
		ProductsTable:      cfg.Tables.Products,
		NotificationsTable: cfg.Tables.Notifications,
		CartsTable:         cfg.Tables.Carts,
		IdempotencyTable:   cfg.Tables.Idempotency,
		TTLWindow:          cfg.Events.TTLWindow,
		QueueURL:           cfg.Events.QueueURL,
		Realtime:           emitter,
		Logger:             logger,
	}

	r := setupRouter(handlerCfg)

	// if RUN_LOCAL is set, run a local HTTP server for development.
	if cfg.Server.RunLocal {
		addr := ":" + cfg.Server.Port
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
