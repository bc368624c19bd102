// cmd/advancer/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/callforge/dialer-backend/internal/admission"
	"github.com/callforge/dialer-backend/internal/config"
	"github.com/callforge/dialer-backend/internal/db"
	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/prediction"
	"github.com/callforge/dialer-backend/internal/queue"
	"github.com/callforge/dialer-backend/internal/repository"
	"github.com/callforge/dialer-backend/internal/service"
)

// The advancer is the external polling driver: it repeatedly invokes the
// stateless Advance operation for every non-terminal campaign until each
// reaches a terminal status. The orchestrator keeps no memory between
// passes, so crashing and restarting this process is always safe.
func main() {
	cfgPath := flag.String("config", "", "config file path")
	interval := flag.Duration("interval", 15*time.Second, "poll interval")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	conn, err := db.Open(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	admissionRepo := &repository.AdmissionRepository{DB: conn}

	amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, cfg.DialQueue)
	if err != nil {
		logger.Fatal("amqp connect", zap.Error(err))
	}
	defer amqpQueue.Close()

	var predictor prediction.Predictor
	if cfg.Prediction.Enabled && cfg.Prediction.BaseURL != "" {
		predictor = prediction.NewHTTPClient(cfg.Prediction.BaseURL,
			time.Duration(cfg.Prediction.TimeoutMS)*time.Millisecond)
	}

	admissionCtrl := admission.NewController(admissionRepo, cfg.AdmissionLimits(), logger)

	svc := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Admission:    admissionCtrl,
		Dispatcher: &service.DispatchService{
			CampaignRepo: campaignRepo,
			ContactRepo:  contactRepo,
			Queue:        amqpQueue,
			Predictor:    predictor,
			BatchSize:    cfg.Limits.DispatchBatchSize,
			Topic:        cfg.DialQueue,
			Logger:       logger,
		},
		Monitor: &service.MonitorService{
			CampaignRepo: campaignRepo,
			ContactRepo:  contactRepo,
			Admission:    admissionCtrl,
			StaleAfter:   time.Duration(cfg.Limits.StaleAfterMinutes) * time.Minute,
			MaxRuntime:   time.Duration(cfg.Limits.MaxCampaignRuntimeHours) * time.Hour,
			Logger:       logger,
		},
		Logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	logger.Info("advancer running", zap.Duration("interval", *interval))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		runPass(ctx, svc, campaignRepo, logger)

		select {
		case <-ctx.Done():
			logger.Info("advancer stopping")
			return
		case <-ticker.C:
		}
	}
}

func runPass(ctx context.Context, svc *service.CampaignService, repo *repository.CampaignRepository, logger *zap.Logger) {
	campaigns, err := repo.ListByStatuses(model.StatusScheduled, model.StatusActive)
	if err != nil {
		logger.Error("list campaigns", zap.Error(err))
		return
	}

	for _, c := range campaigns {
		if ctx.Err() != nil {
			return
		}

		result, err := svc.Advance(ctx, c.ID)
		if err != nil {
			switch {
			case appErrors.IsRetryable(err):
				// Admission full or rate pressure: next tick retries.
				logger.Info("advance deferred",
					zap.Int("campaign_id", c.ID), zap.Error(err))
			case appErrors.IsInvalidState(err) || appErrors.IsConflict(err):
				// Lost a race with an operator action; fresh state next
				// tick.
				logger.Debug("advance skipped",
					zap.Int("campaign_id", c.ID), zap.Error(err))
			default:
				logger.Error("advance failed",
					zap.Int("campaign_id", c.ID), zap.Error(err))
			}
			continue
		}

		if result.Done {
			logger.Info("campaign reached terminal status",
				zap.Int("campaign_id", c.ID),
				zap.String("status", result.Status))
		}
	}
}
