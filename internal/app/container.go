// Package app wires the request pipeline, datastores, sagas and the outbox
// relay into one container.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	blogCommands "github.com/felixgeelhaar/conduit/internal/blog/application/commands"
	blogQueries "github.com/felixgeelhaar/conduit/internal/blog/application/queries"
	blogDomain "github.com/felixgeelhaar/conduit/internal/blog/domain"
	blogPersistence "github.com/felixgeelhaar/conduit/internal/blog/infrastructure/persistence"
	"github.com/felixgeelhaar/conduit/internal/shared/application/mediator"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database/postgres" // register postgres driver
	_ "github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database/sqlite"   // register sqlite driver
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/idempotency"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/outbox"
	userCommands "github.com/felixgeelhaar/conduit/internal/users/application/commands"
	userQueries "github.com/felixgeelhaar/conduit/internal/users/application/queries"
	userDomain "github.com/felixgeelhaar/conduit/internal/users/domain"
	userPersistence "github.com/felixgeelhaar/conduit/internal/users/infrastructure/persistence"
	"github.com/felixgeelhaar/conduit/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Datastores
	DB          *database.Manager
	RedisClient *redis.Client

	// Repositories
	UserRepo userDomain.Repository
	PostRepo blogDomain.Repository

	// Pipeline
	Mediator        *mediator.Mediator
	CommandIndex    *saga.Index
	EventDispatcher *saga.PostCommitDispatcher

	// Outbox and event bus
	OutboxManager   *outbox.Manager
	OutboxProcessor *outbox.Processor
	EventPublisher  eventbus.Publisher
	EventBus        *eventbus.InProcessEventBus
}

// NewContainer initializes all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initDatabases(ctx); err != nil {
		return nil, err
	}
	if err := c.initRedis(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initEventBus(); err != nil {
		c.Close()
		return nil, err
	}
	c.initPipeline()
	c.initOutboxProcessor()

	return c, nil
}

func (c *Container) initDatabases(ctx context.Context) error {
	c.DB = database.NewManager()

	if err := c.registerDatabase(ctx, database.DefaultAlias, c.Config.DatabaseURL); err != nil {
		return err
	}
	for alias, url := range c.Config.ExtraDatabases {
		if err := c.registerDatabase(ctx, alias, url); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) registerDatabase(ctx context.Context, alias, url string) error {
	conn, err := database.NewConnection(ctx, connectionConfig(url))
	if err != nil {
		return fmt.Errorf("connect datastore %q: %w", alias, err)
	}
	if err := migrations.Run(ctx, conn); err != nil {
		conn.Close()
		return fmt.Errorf("migrate datastore %q: %w", alias, err)
	}
	if err := c.DB.Register(alias, conn); err != nil {
		conn.Close()
		return err
	}
	c.Logger.Info("datastore registered", "alias", alias, "driver", conn.Driver())
	return nil
}

// connectionConfig maps a URL to a connection config, extracting the file
// path for SQLite URLs.
func connectionConfig(url string) database.Config {
	driver := database.DetectDriver(url)
	cfg := database.Config{Driver: driver, URL: url}
	if driver == database.DriverSQLite {
		path := strings.TrimPrefix(url, "sqlite://")
		path = strings.TrimPrefix(path, "file:")
		cfg.SQLitePath = path
	}
	return cfg
}

func (c *Container) initRedis() error {
	if c.Config.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	c.RedisClient = redis.NewClient(opts)
	return nil
}

func (c *Container) initEventBus() error {
	if c.Config.RabbitMQURL == "" {
		c.EventBus = eventbus.NewInProcessEventBus(c.Logger)
		c.EventPublisher = c.EventBus
		c.Logger.Info("using in-process event bus")
		return nil
	}

	pub, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	c.EventPublisher = eventbus.NewBreakerPublisher(pub, c.Logger)
	return nil
}

func (c *Container) initPipeline() {
	c.UserRepo = userPersistence.NewSQLUserRepository(c.DB)
	c.PostRepo = blogPersistence.NewSQLPostRepository(c.DB)

	c.CommandIndex = saga.NewIndex(
		userCommands.Discovery(),
		blogCommands.Discovery(),
	)

	// Behaviors: metrics outermost, then authorization, idempotency and the
	// transaction boundary directly around the handler.
	behaviors := []mediator.Behavior{
		mediator.NewMetricsBehavior(nil, c.Logger),
		mediator.NewAuthorizationBehavior(mediator.AllowAll()),
	}
	if store := c.idempotencyStore(); store != nil {
		behaviors = append(behaviors, mediator.NewIdempotencyBehavior(store, c.Logger))
	}
	uowFactory := database.NewUnitOfWorkFactory(c.DB, c.Logger)
	behaviors = append(behaviors, mediator.NewTransactionBehavior(uowFactory, database.DefaultAlias, c.Logger))

	c.Mediator = mediator.New(
		mediator.WithBehaviors(behaviors...),
		mediator.WithLogger(c.Logger),
	)

	// Saga chain: durable outbox record first, then convention-routed
	// command re-dispatch. Failures in one never block the other.
	c.OutboxManager = outbox.NewManager(c.DB)
	sagas := saga.NewMultiSaga(c.Logger,
		saga.NewOutboxSaga(c.OutboxManager, c.Logger),
		saga.NewGenericCrudSaga(c.Mediator, c.CommandIndex, c.Logger),
	)
	c.EventDispatcher = saga.NewPostCommitDispatcher(sagas, c.DB, c.DB, c.Logger)

	c.registerHandlers()
}

func (c *Container) idempotencyStore() mediator.IdempotencyStore {
	if c.RedisClient != nil {
		return idempotency.NewRedisStore(c.RedisClient, "", c.Config.IdempotencyTTL)
	}
	return idempotency.NewMemoryStore(c.Config.IdempotencyTTL)
}

func (c *Container) registerHandlers() {
	m := c.Mediator

	m.MustRegister(&userCommands.CreateUserCommand{}, func() mediator.Handler {
		return userCommands.NewCreateUserHandler(c.UserRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&userCommands.UpdateUserCommand{}, func() mediator.Handler {
		return userCommands.NewUpdateUserHandler(c.UserRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&userCommands.DeleteUserCommand{}, func() mediator.Handler {
		return userCommands.NewDeleteUserHandler(c.UserRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&userQueries.GetUserQuery{}, func() mediator.Handler {
		return userQueries.NewGetUserHandler(c.UserRepo)
	})
	m.MustRegister(&userQueries.ListUsersQuery{}, func() mediator.Handler {
		return userQueries.NewListUsersHandler(c.UserRepo)
	})

	m.MustRegister(&blogCommands.CreateBlogPostCommand{}, func() mediator.Handler {
		return blogCommands.NewCreateBlogPostHandler(c.PostRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&blogCommands.UpdateBlogPostCommand{}, func() mediator.Handler {
		return blogCommands.NewUpdateBlogPostHandler(c.PostRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&blogCommands.DeleteBlogPostCommand{}, func() mediator.Handler {
		return blogCommands.NewDeleteBlogPostHandler(c.PostRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&blogCommands.PublishBlogPostCommand{}, func() mediator.Handler {
		return blogCommands.NewPublishBlogPostHandler(c.PostRepo, c.EventDispatcher, c.Logger)
	})
	m.MustRegister(&blogQueries.GetBlogPostQuery{}, func() mediator.Handler {
		return blogQueries.NewGetBlogPostHandler(c.PostRepo)
	})
	m.MustRegister(&blogQueries.ListBlogPostsQuery{}, func() mediator.Handler {
		return blogQueries.NewListBlogPostsHandler(c.PostRepo)
	})
}

func (c *Container) initOutboxProcessor() {
	c.OutboxProcessor = outbox.NewProcessor(
		c.OutboxManager,
		c.DB.Aliases(),
		c.EventPublisher,
		outbox.ProcessorConfig{
			PollInterval:     c.Config.OutboxPollInterval,
			BatchSize:        c.Config.OutboxBatchSize,
			MaxRetries:       c.Config.OutboxMaxRetries,
			RetentionPeriod:  c.Config.OutboxRetentionPeriod,
			CleanupInterval:  c.Config.OutboxCleanupInterval,
		},
		c.Logger,
	)
}

// Close releases all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil && c.OutboxProcessor.IsRunning() {
		c.OutboxProcessor.Stop()
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.CloseAll(); err != nil {
			c.Logger.Warn("failed to close datastores", "error", err)
		}
	}
}
