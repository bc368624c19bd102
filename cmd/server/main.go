// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/callforge/dialer-backend/internal/admission"
	"github.com/callforge/dialer-backend/internal/config"
	"github.com/callforge/dialer-backend/internal/controller"
	"github.com/callforge/dialer-backend/internal/db"
	"github.com/callforge/dialer-backend/internal/handler"
	"github.com/callforge/dialer-backend/internal/prediction"
	"github.com/callforge/dialer-backend/internal/queue"
	"github.com/callforge/dialer-backend/internal/repository"
	"github.com/callforge/dialer-backend/internal/service"
)

func main() {
	cfgPath := flag.String("config", "", "config file path")
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
	settingsRepo := &repository.SettingsRepository{DB: conn}

	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, cfg.DialQueue)
		if err != nil {
			logger.Fatal("amqp connect", zap.Error(err))
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		logger.Warn("AMQP_URL not set, using in-memory queue (dev only)")
		q = queue.NewInMemoryQueue()
	}

	var predictor prediction.Predictor
	if cfg.Prediction.Enabled && cfg.Prediction.BaseURL != "" {
		predictor = prediction.NewHTTPClient(cfg.Prediction.BaseURL,
			time.Duration(cfg.Prediction.TimeoutMS)*time.Millisecond)
	}

	admissionCtrl := admission.NewController(admissionRepo, cfg.AdmissionLimits(), logger)

	dispatcher := &service.DispatchService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Queue:        q,
		Predictor:    predictor,
		BatchSize:    cfg.Limits.DispatchBatchSize,
		Topic:        cfg.DialQueue,
		Logger:       logger,
	}

	monitor := &service.MonitorService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Admission:    admissionCtrl,
		StaleAfter:   time.Duration(cfg.Limits.StaleAfterMinutes) * time.Minute,
		MaxRuntime:   time.Duration(cfg.Limits.MaxCampaignRuntimeHours) * time.Hour,
		Logger:       logger,
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Admission:    admissionCtrl,
		Dispatcher:   dispatcher,
		Monitor:      monitor,
		Logger:       logger,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Settings:        settingsRepo,
	}
	campaignHandler := &handler.CampaignHandler{Service: campaignService}

	r := chi.NewRouter()

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignWithStats)
	r.Post("/campaigns/{id}/schedule", campaignController.Schedule)
	r.Post("/campaigns/{id}/start", campaignController.Start)
	r.Post("/campaigns/{id}/pause", campaignController.Pause)
	r.Post("/campaigns/{id}/resume", campaignController.Resume)
	r.Post("/campaigns/{id}/cancel", campaignController.Cancel)
	r.Post("/campaigns/{id}/advance", campaignController.Advance)
	r.Get("/campaigns/{id}/status", campaignController.Status)
	r.Post("/contacts/{id}/outcome", campaignController.ContactOutcome)
	r.Put("/settings/max-cps", campaignController.SetMaxCPS)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("🚀 server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
