package wire

import (
	"context"
	"fmt"

	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/pricing"
	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/database"
	"marketplace-booking/pkg/metrics"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

// Bootstrap opens every backing store named by the configuration and wires
// the application on top of them. Call App.Close on shutdown.
func Bootstrap(ctx context.Context, config *utils.Config, logger *zap.Logger) (*App, error) {
	var closers []func()
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	calc, err := newCalculator(config.Pricing)
	if err != nil {
		return fail(err)
	}

	var inboxClient repository.DynamoAPI
	if config.Webhook.InboxDriver == "dynamodb" {
		ddb, err := database.InitDynamoDB(ctx, config.DynamoDB)
		if err != nil {
			return fail(fmt.Errorf("init dynamodb: %w", err))
		}
		inboxClient = ddb
		logger.Info("Webhook inbox on DynamoDB", zap.String("table", config.DynamoDB.InboxTable))
	}

	var repo *repository.Repository
	switch config.Store.Driver {
	case "memory":
		logger.Warn("Using in-memory booking store, data is lost on restart")
		repo = repository.NewMemoryRepository(nil, logger)
		if inboxClient != nil {
			repo.Inbox = repository.NewDynamoWebhookInbox(inboxClient, config.DynamoDB.InboxTable, logger)
		}
	default:
		db, err := database.InitDB(config.Database)
		if err != nil {
			return fail(fmt.Errorf("connect database: %w", err))
		}
		closers = append(closers, db.Close)
		logger.Info("Database connected successfully")
		repo = repository.NewRepository(db, inboxClient, config.DynamoDB.InboxTable, logger)
	}

	var publisher event.Publisher = event.NewLogPublisher(logger)
	if config.Redis.URL != "" {
		client, err := database.InitRedis(ctx, config.Redis.URL)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		closers = append(closers, func() { client.Close() })
		publisher = event.NewRedisPublisher(client, config.Redis.Channel, logger)
		logger.Info("Publishing booking events to Redis", zap.String("channel", config.Redis.Channel))
	}

	m := metrics.New("booking")

	deps := usecase.Deps{
		Repo:      repo,
		Gateway:   newGateway(config.Gateway, logger, m),
		Pricing:   calc,
		Publisher: publisher,
		Metrics:   m,
	}
	if !deps.Gateway.IsAvailable() {
		logger.Warn("Payment gateway is not configured, payment endpoints will answer 503")
	}

	app := Wiring(deps, config, logger)
	app.closers = closers
	return app, nil
}

func newCalculator(cfg utils.PricingConfig) (*pricing.Calculator, error) {
	tiers, err := pricing.ParseTiers(cfg.RefundTiers)
	if err != nil {
		return nil, fmt.Errorf("parse refund tiers: %w", err)
	}
	return pricing.NewCalculator(pricing.Config{
		TaxRate:      cfg.TaxRate,
		Currency:     cfg.Currency,
		Tiers:        tiers,
		FloorPercent: cfg.RefundMinPercent,
	})
}

func newGateway(cfg utils.GatewayConfig, logger *zap.Logger, m *metrics.Metrics) gateway.Gateway {
	if cfg.Mock {
		return gateway.NewMockGateway(cfg.KeySecret, logger)
	}
	return gateway.NewRazorpayClient(gateway.RazorpayConfig{
		KeyID:      cfg.KeyID,
		KeySecret:  cfg.KeySecret,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: uint64(max(cfg.MaxRetries, 0)),
	}, logger, m)
}
