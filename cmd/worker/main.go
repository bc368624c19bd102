// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/callforge/dialer-backend/internal/config"
	"github.com/callforge/dialer-backend/internal/db"
	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/metrics"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/ratelimit"
	"github.com/callforge/dialer-backend/internal/repository"
	"github.com/callforge/dialer-backend/internal/telephony"
)

type campaignStore interface {
	GetByID(id int) (*model.Campaign, error)
}

type contactStore interface {
	RecordOutcome(contactID int, outcome string) (bool, error)
}

type blacklistStore interface {
	Contains(phoneNumber string) (bool, error)
}

type admitter interface {
	Admit(ctx context.Context) error
}

// dialWorker consumes DialTasks, gates each one on the shared CPS
// limiter, and submits the dial command to the telephony control plane.
type dialWorker struct {
	campaignRepo  campaignStore
	contactRepo   contactStore
	blacklistRepo blacklistStore
	limiter       admitter
	adapter       telephony.Adapter
	logger        *zap.Logger
}

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

	settingsRepo := &repository.SettingsRepository{DB: conn}

	var store ratelimit.CounterStore
	if cfg.RateStore == "local" {
		local := ratelimit.NewLocalCounterStore()
		defer local.Stop()
		store = local
	} else {
		store = &repository.RateCounterRepository{DB: conn}
	}

	limiter := ratelimit.NewLimiter(store, func() int {
		// Read fresh every admit so operators can lower the ceiling live.
		return settingsRepo.GetInt(repository.SettingMaxCPS, cfg.Limits.MaxCPS)
	}, logger)

	worker := &dialWorker{
		campaignRepo:  &repository.CampaignRepository{DB: conn},
		contactRepo:   &repository.ContactRepository{DB: conn},
		blacklistRepo: &repository.BlacklistRepository{DB: conn},
		limiter:       limiter,
		adapter: telephony.NewHTTPAdapter(cfg.Telephony.BaseURL,
			time.Duration(cfg.Telephony.TimeoutSeconds)*time.Second),
		logger: logger,
	}

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Fatal("amqp connect", zap.Error(err))
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		logger.Fatal("amqp channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(cfg.DialQueue, true, false, false, false, nil)
	if err != nil {
		logger.Fatal("queue declare", zap.Error(err))
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatal("register consumer", zap.Error(err))
	}

	logger.Info("dial worker running", zap.String("queue", cfg.DialQueue))

	for d := range msgs {
		var task model.DialTask
		if err := json.Unmarshal(d.Body, &task); err != nil {
			logger.Warn("invalid dial task, dropping", zap.Error(err))
			d.Ack(false)
			continue
		}

		requeue, err := worker.process(context.Background(), task)
		if err != nil && requeue {
			// Rate-limited: not a failure, just this second's ceiling.
			// Brief pause, then hand it back to the queue.
			time.Sleep(200 * time.Millisecond)
			d.Nack(false, true)
			continue
		}
		if err != nil {
			logger.Warn("dial task failed",
				zap.Int("contact_id", task.ContactID),
				zap.Error(err))
		}
		d.Ack(false)
	}
}

// process handles one dial task. It returns requeue=true only for
// rate-limit denials; everything else either succeeds or is left for the
// monitor's staleness reclaim.
func (w *dialWorker) process(ctx context.Context, task model.DialTask) (requeue bool, err error) {
	if err := w.limiter.Admit(ctx); err != nil {
		if appErrors.IsRateLimited(err) {
			return true, err
		}
		return false, err
	}

	// Final do-not-call check right before the dial; the list may have
	// grown since dispatch. Lookup errors degrade to "not blacklisted".
	blocked, err := w.blacklistRepo.Contains(task.PhoneNumber)
	if err != nil {
		w.logger.Warn("blacklist lookup failed, proceeding",
			zap.Int("contact_id", task.ContactID), zap.Error(err))
	} else if blocked {
		if _, err := w.contactRepo.RecordOutcome(task.ContactID, model.ContactFailed); err != nil {
			return false, err
		}
		w.logger.Info("contact blacklisted since dispatch, dial suppressed",
			zap.Int("contact_id", task.ContactID))
		return false, nil
	}

	campaign, err := w.campaignRepo.GetByID(task.CampaignID)
	if err != nil {
		return false, err
	}

	cmd := telephony.DialCommand{
		CallID:      uuid.NewString(),
		PhoneNumber: task.PhoneNumber,
		CampaignID:  task.CampaignID,
		ContactID:   task.ContactID,
		AudioRef:    campaign.Config.AudioRef,
		IVRFlow:     campaign.Config.IVRFlow,
		Metadata:    task.Metadata,
	}

	if err := w.adapter.Dial(ctx, cmd); err != nil {
		// Per-contact dispatch failure: the contact stays in_progress and
		// the monitor reclaims it if no outcome ever arrives.
		metrics.DialFailures.Inc()
		return false, err
	}

	w.logger.Info("dial submitted",
		zap.String("call_id", cmd.CallID),
		zap.Int("campaign_id", task.CampaignID),
		zap.Int("contact_id", task.ContactID))
	return false, nil
}
