package appServer

import (
	"context"
	"crypto/tls"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/config"
	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/database/memory"
	repository "github.com/ds124wfegd/WB_L3/carrent/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/carrent/internal/service"
	"github.com/ds124wfegd/WB_L3/carrent/internal/transport"
	"github.com/ds124wfegd/WB_L3/carrent/internal/worker"

	"github.com/ds124wfegd/WB_L3/carrent/pkg/crypto"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/metrics"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/postgres"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/queue"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/rabbitmq"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/redis"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/scheduler"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/telegram"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// notifications bundles whichever transport carries notifications and expiry
// tasks, plus the hooks to start and stop its consumer.
type notifications struct {
	notifier service.Notifier
	expiry   service.ExpiryScheduler
	consume  func(ctx context.Context, handler *queue.TaskHandler) error
	close    func()

	inspector transport.QueueInspector
	check     func(ctx context.Context) error
}

func NewServer(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := make(map[string]func(ctx context.Context) error)

	store, db, err := newStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	m := metrics.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)

	notes, err := newNotifications(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize notification transport: %v", err)
	}
	defer notes.close()
	if notes.check != nil {
		checks[cfg.Notification.Transport] = notes.check
	}

	var producer kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Ledger.Topic)
		logrus.WithField("brokers", cfg.Kafka.Brokers).Info("Kafka producer initialized")
	} else {
		producer = kafka.NewLogProducer()
		logrus.Warn("Kafka disabled, ledger entries are only logged")
	}
	defer producer.Close()

	opts := service.Options{
		PlatformFeePercent: decimal.NewFromFloat(cfg.Booking.PlatformFeePercent),
		PaymentTimeout:     cfg.Booking.PaymentTimeout,
		CancellationWindow: cfg.Booking.CancellationWindow,
		CancellationLimit:  cfg.Booking.CancellationLimit,
	}

	bookingService := service.NewBookingService(store, notes.notifier, notes.expiry, m, opts)
	contractService := service.NewContractService(store, notes.notifier, m, opts)
	fleetService := service.NewFleetService(store, opts)

	// Keep bot a nil interface when disabled, not a typed nil *telegram.Bot.
	var bot queue.TelegramBot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		bot = telegram.NewBot(cfg.Telegram.BotToken)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot disabled, notifications are only logged")
	}

	if notes.consume != nil {
		taskHandler := queue.NewTaskHandler(bookingService, bot, cfg.Telegram.ChatID)
		if err := notes.consume(ctx, taskHandler); err != nil {
			logrus.Fatalf("Failed to start queue consumer: %v", err)
		}
		logrus.WithField("transport", cfg.Notification.Transport).Info("Queue consumer started")
	}

	jobs := scheduler.NewScheduler(
		worker.NewExpiryWorker(bookingService, cfg.Worker.ExpiryInterval),
		worker.NewLedgerRelay(store, producer, m, cfg.Ledger.Topic, cfg.Ledger.BatchSize, cfg.Ledger.RelayInterval),
	)
	jobs.Start(ctx)
	logrus.Info("Background jobs started")

	if cfg.Server.Mode == "release" || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := transport.Handlers{
		Bookings:  transport.NewBookingHandler(bookingService),
		Contracts: transport.NewContractHandler(contractService),
		Fleet:     transport.NewFleetHandler(fleetService),
		Checks:    checks,
	}
	if notes.inspector != nil {
		handlers.Admin = transport.NewAdminHandler(notes.inspector)
	}

	router := transport.InitRoutes(handlers, token.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration), prometheus.DefaultGatherer, cfg.Server.Timeout)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("addr", cfg.GetServerAddress()).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("App Shutting Down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	cancel()
	jobs.Wait()
}

// newStore returns a nil *sql.DB for the memory driver.
func newStore(ctx context.Context, cfg *config.Config) (database.Store, *sql.DB, error) {
	if cfg.Database.Driver == "memory" {
		logrus.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pii, err := newCipher(cfg.PII.Key)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewStore(db, pii), db, nil
}

func newCipher(key string) (crypto.Cipher, error) {
	if key == "" {
		logrus.Warn("PII key not set, license plates are stored in plain text")
		return crypto.Plaintext{}, nil
	}
	return crypto.NewCipher(key)
}

func newNotifications(ctx context.Context, cfg *config.Config) (*notifications, error) {
	switch cfg.Notification.Transport {
	case "redis":
		client, err := redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}

		qcfg := queue.DefaultRedisQueueConfig()
		qcfg.Workers = cfg.Worker.QueueWorkers
		q := queue.NewRedisQueue(client, qcfg)
		adapter := service.NewQueueAdapter(q)

		return &notifications{
			notifier: adapter,
			expiry:   adapter,
			consume: func(ctx context.Context, handler *queue.TaskHandler) error {
				return q.Subscribe(ctx, handler.HandleTask)
			},
			close: func() {
				q.Close()
				client.Close()
			},
			inspector: q,
			check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		}, nil

	case "rabbitmq":
		mq, err := rabbitmq.NewRabbitMQ(rabbitmq.Config{URL: cfg.RabbitMQ.URL, QueueName: cfg.RabbitMQ.Queue})
		if err != nil {
			return nil, err
		}
		adapter := service.NewRabbitAdapter(mq)

		return &notifications{
			notifier: adapter,
			expiry:   adapter,
			consume: func(ctx context.Context, handler *queue.TaskHandler) error {
				return mq.Consume(ctx, func(body []byte) error {
					var task queue.Task
					if err := json.Unmarshal(body, &task); err != nil {
						return fmt.Errorf("failed to decode task: %w", err)
					}
					return handler.HandleTask(&task)
				})
			},
			close: func() {
				if err := mq.Close(); err != nil {
					logrus.WithError(err).Error("Failed to close RabbitMQ")
				}
			},
			check: func(context.Context) error {
				return mq.HealthCheck()
			},
		}, nil

	case "log", "":
		return &notifications{
			notifier: service.LogNotifier{},
			expiry:   service.LogNotifier{},
			close:    func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Notification.Transport)
	}
}
