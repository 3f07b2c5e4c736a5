package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/pos-orderflow/internal/aws"
	"github.com/imrishuroy/pos-orderflow/internal/checkout"
	"github.com/imrishuroy/pos-orderflow/internal/config"
	"github.com/imrishuroy/pos-orderflow/internal/events"
	"github.com/imrishuroy/pos-orderflow/internal/gateway"
	"github.com/imrishuroy/pos-orderflow/internal/handlers"
	"github.com/imrishuroy/pos-orderflow/internal/menu"
	"github.com/imrishuroy/pos-orderflow/internal/notify"
	"github.com/imrishuroy/pos-orderflow/internal/orders"
	"github.com/imrishuroy/pos-orderflow/internal/payments"
	"github.com/imrishuroy/pos-orderflow/internal/pos"
	"github.com/imrishuroy/pos-orderflow/internal/sqlite"
	"github.com/imrishuroy/pos-orderflow/internal/webhook"
)

const (
	janitorInterval = time.Hour
	gatewayTimeout  = 15 * time.Second
)

func setupRouter(cfg handlers.HandlerConfig, webAppURL string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if webAppURL != "" {
		corsCfg.AllowOrigins = []string{webAppURL}
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, handlers.BotSecretHeader)
	r.Use(cors.New(corsCfg))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

// storage opens the pending payment store and the order ledger for the
// configured backend. The returned cleanup releases local resources.
func storage(ctx context.Context, cfg *config.Config, clients *aws.AWSClients) (payments.Store, orders.Ledger, func(), error) {
	if cfg.StoreBackend == config.BackendDynamoDB {
		return payments.NewDynamoStore(clients.DynamoDB, cfg.PendingTable, cfg.PendingTTL),
			orders.NewDynamoLedger(clients.DynamoDB, cfg.OrdersTable),
			func() {}, nil
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, err
	}
	store := payments.NewSQLiteStore(db, cfg.PendingTTL)
	go store.RunJanitor(ctx, janitorInterval)
	return store, orders.NewSQLiteLedger(db), func() { db.Close() }, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clients *aws.AWSClients
	if cfg.StoreBackend == config.BackendDynamoDB || cfg.EventsQueueURL != "" {
		clients, err = aws.NewAWSClients(ctx)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
	}

	store, ledger, closeStorage, err := storage(ctx, cfg, clients)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer closeStorage()

	var emitter events.Emitter = events.LogEmitter{}
	if cfg.EventsQueueURL != "" {
		emitter = events.Multi{emitter, events.NewSQSEmitter(aws.NewPublisher(clients.SQS, cfg.EventsQueueURL))}
	}

	posClient := pos.NewClient(cfg.POSBaseURL, cfg.POSAPIKey, cfg.POSShopGUID, cfg.POSTimeout)
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayShopID, cfg.GatewaySecretKey, cfg.Currency, gatewayTimeout)
	if !gw.Configured() {
		log.Printf("[api] gateway credentials not set, in-app payments disabled")
	}

	refresher := menu.NewRefresher(posClient, cfg.MenuGroupName, cfg.MenuRefreshInterval)
	go refresher.Run(ctx)

	resolver := checkout.NewResolver(store, orders.NewSubmitter(posClient, ledger, cfg.POSShopGUID), gw, emitter, checkout.Options{
		WebAppURL:  cfg.WebAppURL,
		ClaimLease: cfg.ClaimLease,
	})

	var notifier notify.Notifier
	if cfg.BotToken != "" {
		notifier = notify.NewTelegram(cfg.MessagingAPIURL, cfg.BotToken, 0)
	} else {
		log.Printf("[api] bot token not set, status notifications disabled")
	}

	hcfg := handlers.HandlerConfig{
		Checkout:  resolver,
		Menu:      refresher,
		Webhook:   webhook.NewIngestor(ledger, notifier, emitter),
		BotSecret: cfg.BotSecret,
	}
	if cfg.BotSecret == "" {
		log.Printf("[api] BOT_INTERNAL_SECRET not set, bot endpoints will reject every call")
	}

	r := setupRouter(hcfg, cfg.WebAppURL)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		runLocal(ctx, r, cfg.HTTPAddr)
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.StartWithOptions(func(ctx context.Context, req lambdaevents.APIGatewayProxyRequest) (interface{}, error) {
		// the adapter handles proxying; use adapter.ProxyWithContext for proper context propagation
		return adapter.ProxyWithContext(ctx, req)
	}, lambda.WithContext(ctx))
}

func runLocal(ctx context.Context, h http.Handler, addr string) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[api] shutdown: %v", err)
		}
	}()

	log.Printf("running local server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to run local server: %v", err)
	}
}
