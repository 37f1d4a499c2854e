package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/walletledger/internal/db"
	"github.com/nkiryanov/walletledger/internal/handlers"
	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/repository"
	"github.com/nkiryanov/walletledger/internal/repository/postgres"
	"github.com/nkiryanov/walletledger/internal/repository/sqlite"
	"github.com/nkiryanov/walletledger/internal/service/account"
	"github.com/nkiryanov/walletledger/internal/service/ledger"
	"github.com/nkiryanov/walletledger/internal/service/notifier"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	dispatcher *notifier.Dispatcher
	consumer   *notifier.Consumer // nil if events are not consumed

	logger  logger.Logger
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{
		ListenAddr: c.ListenAddr,
		logger:     logger,
	}

	// Connect to the database and run migrations
	storage, err := app.openStorage(ctx, c.DatabaseDSN)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Initialize event publisher
	var publisher notifier.Publisher = notifier.NewLogPublisher(logger.WithGroup("events"))
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.closers = append(app.closers, func() { _ = client.Close() })

		// Events are best effort, so unavailable redis does not stop the service
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis is not available, events will be lost until it is up", "error", err)
		}

		stream := notifier.NewRedisStream(client, c.EventStream, c.EventPartitions)
		publisher = stream

		if c.ConsumeEvents {
			app.consumer = notifier.NewConsumer(client, stream.Streams(), logger.WithGroup("consumer"), notifier.ConsumerOpts{})
			if err := app.consumer.Setup(ctx); err != nil {
				app.Close()
				return nil, err
			}
		}
	}

	app.dispatcher = notifier.NewDispatcher(publisher, logger.WithGroup("notifier"), notifier.DispatcherOpts{
		Workers:   c.NotifierWorkers,
		QueueSize: c.NotifierQueue,
	})

	// Initialize services
	accountService := account.NewService(storage)
	ledgerService := ledger.NewService(storage, app.dispatcher, ledger.WithCommitTimeout(c.CommitTimeout))

	app.Handler = handlers.NewRouter(accountService, ledgerService, c.CORSOrigins, logger)

	return app, nil
}

// Choose storage by dsn scheme
func (s *ServerApp) openStorage(ctx context.Context, dsn string) (repository.Storage, error) {
	driver, err := db.Driver(dsn)
	if err != nil {
		return nil, err
	}

	switch driver {
	case db.DriverSQLite:
		sqlDB, err := db.OpenSQLiteAndMigrate(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("error while opening sqlite db. Err: %w", err)
		}
		s.closers = append(s.closers, func() { _ = sqlDB.Close() })
		return sqlite.NewStorage(sqlDB), nil

	default:
		pool, err := db.ConnectAndMigrate(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		return postgres.NewStorage(pool), nil
	}
}

// Close connections in reverse order of opening
func (s *ServerApp) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Run starts http server and closes gracefully on context cancellation
// Events of already committed transactions are published before Run returns
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	// Dispatcher outlives the server: it has to publish what the last requests committed
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer dispatcherCancel()
	dispatcherStopped := s.dispatcher.Run(dispatcherCtx)

	var consumerStopped <-chan struct{}
	if s.consumer != nil {
		consumerStopped = s.consumer.Consume(ctx)
	} else {
		stopped := make(chan struct{})
		close(stopped)
		consumerStopped = stopped
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	dispatcherCancel()
	<-dispatcherStopped
	<-consumerStopped
	// Requests outliving the shutdown timeout may still commit. Their events are dropped and counted
	if dropped := s.dispatcher.Dropped(); dropped > 0 {
		s.logger.Warn("Event dispatcher stopped, some events were not published", "dropped", dropped)
	} else {
		s.logger.Info("Event dispatcher stopped")
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
