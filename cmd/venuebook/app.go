package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"venuebook/internal/app/commands"
	"venuebook/internal/app/dto"
	availabilityapp "venuebook/internal/app/handlers/availability"
	bookingapp "venuebook/internal/app/handlers/booking"
	"venuebook/internal/app/middleware"
	appoutbox "venuebook/internal/app/outbox"
	"venuebook/internal/app/policies"
	"venuebook/internal/app/queries"
	"venuebook/internal/app/schedule"
	bookingsvc "venuebook/internal/app/services/booking"
	"venuebook/internal/domain/venues"
	"venuebook/internal/infra/broker/kafka"
	"venuebook/internal/infra/config"
	mongostore "venuebook/internal/infra/db/mongo"
	"venuebook/internal/infra/holidaze"
	ginserver "venuebook/internal/infra/http/gin"
	"venuebook/internal/infra/inbox"
	"venuebook/internal/infra/obs"
	infraoutbox "venuebook/internal/infra/outbox"
	"venuebook/internal/infra/storage/memory"
	redisstore "venuebook/internal/infra/storage/redis"
)

// storage is what a store mode provides.
type storage struct {
	directory venues.Directory
	bookings  policies.BookingStorePort
	outbox    appoutbox.Outbox
	queue     infraoutbox.Queue
	trigger   <-chan struct{}
	idem      middleware.IdempotencyStore
	inbox     inbox.Deduper
}

type application struct {
	handlers ginserver.Handlers
	checks   []obs.ReadyCheck
	views    *bookingsvc.Views
	worker   *infraoutbox.Worker
	consumer *kafka.Consumer
	topics   []string
	viewTTL  time.Duration
	closers  []func(context.Context) error
	wg       sync.WaitGroup
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *obs.Metrics) (*application, error) {
	app := &application{viewTTL: cfg.ViewTTL}
	st, err := app.openStorage(ctx, cfg, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	if cfg.RedisAddr != "" {
		client := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		idem := redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		st.idem = idem
		app.checks = append(app.checks, obs.ReadyCheck{Name: "redis", Check: idem.Ping})
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
	}

	app.views = bookingsvc.NewViews(bookingsvc.ViewsConfig{
		Directory: st.directory,
		Store:     st.bookings,
		Outbox:    st.outbox,
		Encoder:   appoutbox.JSONEventEncoder{},
		Observer:  metrics,
		Logger:    logger,
		TTL:       cfg.ViewTTL,
	})

	stale := &kafka.StaleViewsHandler{Views: app.views, Inbox: st.inbox, Observer: metrics, Logger: logger}
	var producer infraoutbox.Producer = kafka.Loopback{Handler: stale}
	if cfg.EventsEnabled() {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, "venuebook", nil)
		if err != nil {
			app.close(logger)
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return kp.Close() })
		producer = kp

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, stale, logger)
		if err != nil {
			app.close(logger)
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
		app.consumer = consumer
		app.topics = kafka.Topics(cfg.KafkaTopicPrefix)
	}
	app.worker = &infraoutbox.Worker{
		Queue:       st.queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
		Observer:    metrics,
		Trigger:     st.trigger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.SubmitBookingCommand, *dto.BookingOutcome](commandBus, &bookingapp.SubmitBookingHandler{Views: app.views})
	commands.RegisterHandler[bookingapp.CloseViewCommand, bookingapp.CloseViewResult](commandBus, &bookingapp.CloseViewHandler{Views: app.views, Logger: logger})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.OpenViewQuery, dto.Availability](queryBus, &availabilityapp.OpenViewHandler{Views: app.views})
	queries.RegisterHandler[bookingapp.ValidateBookingQuery, dto.Validation](queryBus, &bookingapp.ValidateBookingHandler{Views: app.views})
	queries.RegisterHandler[bookingapp.ListVenueBookingsQuery, dto.VenueBookingCollection](queryBus, &bookingapp.ListVenueBookingsHandler{Directory: st.directory})

	validator := middleware.NewStructValidator()
	commandsWithMiddleware := middleware.ChainCommands(commandBus,
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Idempotency(st.idem, nil),
		middleware.OutboxFlush(st.outbox, logger),
	)
	queriesWithMiddleware := middleware.ChainQueries(queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(validator),
	)

	app.handlers = ginserver.Handlers{
		Venue:   ginserver.VenueHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware, Logger: logger},
		Owner:   ginserver.OwnerHandler{Queries: queriesWithMiddleware, Logger: logger},
		Metrics: metrics.Handler(),
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StoreMode {
	case config.StoreMongo:
		return a.openMongo(ctx, cfg, logger)
	case config.StoreHolidaze:
		client, err := holidaze.New(holidaze.Config{
			BaseURL: cfg.HolidazeURL,
			APIKey:  cfg.HolidazeAPIKey,
			Timeout: cfg.HolidazeTimeout,
			Logger:  logger,
		})
		if err != nil {
			return storage{}, err
		}
		box := memory.NewOutbox()
		return storage{
			directory: client,
			bookings:  client,
			outbox:    box,
			queue:     box,
			trigger:   box.Flushed(),
			idem:      memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:     inbox.NewMemory(0),
		}, nil
	default:
		store := memory.NewVenueStore()
		if err := seedVenues(cfg.VenueFixtures, logger, store.Put); err != nil {
			return storage{}, err
		}
		box := memory.NewOutbox()
		return storage{
			directory: store,
			bookings:  store,
			outbox:    box,
			queue:     box,
			trigger:   box.Flushed(),
			idem:      memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:     inbox.NewMemory(0),
		}, nil
	}
}

func (a *application) openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB, 0)
	if err != nil {
		return storage{}, fmt.Errorf("mongo connect: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.checks = append(a.checks, obs.ReadyCheck{Name: "mongo", Check: client.Ping})

	venueStore, err := mongostore.NewVenueStore(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	if err := seedVenues(cfg.VenueFixtures, logger, func(v venues.Venue) error { return venueStore.Put(ctx, v) }); err != nil {
		return storage{}, err
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return storage{}, err
	}
	dedupe, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID, 7*24*time.Hour)
	if err != nil {
		return storage{}, err
	}
	return storage{
		directory: venueStore,
		bookings:  venueStore,
		outbox:    box,
		queue:     box,
		idem:      idem,
		inbox:     dedupe,
	}, nil
}

func seedVenues(path string, logger *slog.Logger, put func(venues.Venue) error) error {
	if path == "" {
		return nil
	}
	fixtures, err := memory.LoadFixtures(path)
	if err != nil {
		return fmt.Errorf("venue fixtures %s: %w", path, err)
	}
	for _, v := range fixtures {
		if err := put(v); err != nil {
			return fmt.Errorf("seed venue %s: %w", v.ID, err)
		}
	}
	logger.Info("venue fixtures loaded", "path", path, "venues", len(fixtures))
	return nil
}

// start launches the outbox worker, the kafka consumer and the view sweeper.
func (a *application) start(ctx context.Context, logger *slog.Logger) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	if a.consumer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.consumer.Run(ctx, a.topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
	}
	if a.viewTTL > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			schedule.Every(ctx, schedule.Job{
				Name:     "views.sweep",
				Interval: a.viewTTL / 2,
				Run: func(_ context.Context, now time.Time) (int, error) {
					return a.views.Sweep(now), nil
				},
			}, logger)
		}()
	}
}

func (a *application) wait() {
	a.wg.Wait()
}

// close releases resources in reverse order of acquisition.
func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
