// Package app provides the dependency injection container assembling the
// engine's components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/authcore/internal/config"
	credentialRepository "github.com/allisson/authcore/internal/credential/repository"
	credentialService "github.com/allisson/authcore/internal/credential/service"
	credentialUsecase "github.com/allisson/authcore/internal/credential/usecase"
	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	cryptoService "github.com/allisson/authcore/internal/crypto/service"
	"github.com/allisson/authcore/internal/database"
	"github.com/allisson/authcore/internal/metrics"
	sessionRepository "github.com/allisson/authcore/internal/session/repository"
	sessionUsecase "github.com/allisson/authcore/internal/session/usecase"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
	tokenRepository "github.com/allisson/authcore/internal/token/repository"
	tokenService "github.com/allisson/authcore/internal/token/service"
	tokenUsecase "github.com/allisson/authcore/internal/token/usecase"

	internalHTTP "github.com/allisson/authcore/internal/http"
)

// Container holds all application dependencies with lazy initialization:
// components are created on first access and reused afterwards.
type Container struct {
	config *config.Config

	logger      *slog.Logger
	db          *sql.DB
	redisClient *redis.Client

	txManager database.TxManager

	credentialRepo credentialUsecase.CredentialRepository
	sessionRepo    sessionUsecase.SessionRepository
	revocationRepo tokenUsecase.RevocationRepository

	hasher       credentialService.Hasher
	signingChain *tokenDomain.SigningKeyChain
	masterChain  *cryptoDomain.MasterKeyChain
	fieldCipher  cryptoService.FieldCipher

	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	credentialUseCase credentialUsecase.UseCase
	tokenUseCase      tokenUsecase.UseCase
	sessionUseCase    sessionUsecase.UseCase

	httpServer    *internalHTTP.Server
	metricsServer *internalHTTP.MetricsServer

	mu                 sync.Mutex
	loggerInit         sync.Once
	dbInit             sync.Once
	redisInit          sync.Once
	txManagerInit      sync.Once
	credentialRepoInit sync.Once
	sessionRepoInit    sync.Once
	revocationRepoInit sync.Once
	hasherInit         sync.Once
	signingChainInit   sync.Once
	masterChainInit    sync.Once
	fieldCipherInit    sync.Once
	metricsInit        sync.Once
	bizMetricsInit     sync.Once
	credentialUCInit   sync.Once
	tokenUCInit        sync.Once
	sessionUCInit      sync.Once
	httpServerInit     sync.Once
	metricsServerInit  sync.Once
	initErrors         map[string]error
}

// NewContainer creates a new dependency injection container.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			c.initErrors["db"] = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		c.db = db
	})
	if err, ok := c.initErrors["db"]; ok {
		return nil, err
	}
	return c.db, nil
}

// RedisClient returns the Redis client used by the Redis revocation index.
func (c *Container) RedisClient() (*redis.Client, error) {
	c.redisInit.Do(func() {
		opts, err := redis.ParseURL(c.config.RedisURL)
		if err != nil {
			c.initErrors["redis"] = fmt.Errorf("failed to parse redis url: %w", err)
			return
		}
		c.redisClient = redis.NewClient(opts)
	})
	if err, ok := c.initErrors["redis"]; ok {
		return nil, err
	}
	return c.redisClient, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err, ok := c.initErrors["txManager"]; ok {
		return nil, err
	}
	return c.txManager, nil
}

// CredentialRepository returns the credential repository for the configured driver.
func (c *Container) CredentialRepository() (credentialUsecase.CredentialRepository, error) {
	c.credentialRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["credentialRepo"] = err
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.credentialRepo = credentialRepository.NewMySQLCredentialRepository(db)
		case "postgres":
			c.credentialRepo = credentialRepository.NewPostgreSQLCredentialRepository(db)
		default:
			c.initErrors["credentialRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, ok := c.initErrors["credentialRepo"]; ok {
		return nil, err
	}
	return c.credentialRepo, nil
}

// SessionRepository returns the session repository for the configured driver.
func (c *Container) SessionRepository() (sessionUsecase.SessionRepository, error) {
	c.sessionRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["sessionRepo"] = err
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.sessionRepo = sessionRepository.NewMySQLSessionRepository(db)
		case "postgres":
			c.sessionRepo = sessionRepository.NewPostgreSQLSessionRepository(db)
		default:
			c.initErrors["sessionRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, ok := c.initErrors["sessionRepo"]; ok {
		return nil, err
	}
	return c.sessionRepo, nil
}

// RevocationRepository returns the revocation index backend selected by
// REVOCATION_STORE: the SQL table by default, Redis when configured.
func (c *Container) RevocationRepository() (tokenUsecase.RevocationRepository, error) {
	c.revocationRepoInit.Do(func() {
		switch c.config.RevocationStore {
		case "redis":
			client, err := c.RedisClient()
			if err != nil {
				c.initErrors["revocationRepo"] = err
				return
			}
			c.revocationRepo = tokenRepository.NewRedisRevocationRepository(client)
		case "sql", "":
			db, err := c.DB()
			if err != nil {
				c.initErrors["revocationRepo"] = err
				return
			}
			switch c.config.DBDriver {
			case "mysql":
				c.revocationRepo = tokenRepository.NewMySQLRevocationRepository(db)
			case "postgres":
				c.revocationRepo = tokenRepository.NewPostgreSQLRevocationRepository(db)
			default:
				c.initErrors["revocationRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
			}
		default:
			c.initErrors["revocationRepo"] = fmt.Errorf("unsupported revocation store: %s", c.config.RevocationStore)
		}
	})
	if err, ok := c.initErrors["revocationRepo"]; ok {
		return nil, err
	}
	return c.revocationRepo, nil
}

// Hasher returns the Argon2id hasher.
func (c *Container) Hasher() credentialService.Hasher {
	c.hasherInit.Do(func() {
		c.hasher = credentialService.NewArgon2idHasher(c.config.SecretMinLength)
	})
	return c.hasher
}

// SigningKeyChain returns the token signing key chain loaded from the
// environment.
func (c *Container) SigningKeyChain() (*tokenDomain.SigningKeyChain, error) {
	c.signingChainInit.Do(func() {
		chain, err := tokenDomain.LoadSigningKeyChainFromEnv()
		if err != nil {
			c.initErrors["signingChain"] = fmt.Errorf("failed to load signing keys: %w", err)
			return
		}
		c.signingChain = chain
	})
	if err, ok := c.initErrors["signingChain"]; ok {
		return nil, err
	}
	return c.signingChain, nil
}

// MasterKeyChain returns the field-encryption master key chain. With a KMS
// provider configured the keys are unwrapped through gocloud.dev/secrets;
// otherwise they come from the environment directly.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	c.masterChainInit.Do(func() {
		if c.config.KMSProvider != "" {
			kms := cryptoService.NewKMSService()
			keeper, err := kms.OpenKeeper(context.Background(), c.config.KMSKeyURI)
			if err != nil {
				c.initErrors["masterChain"] = fmt.Errorf("failed to open KMS keeper: %w", err)
				return
			}
			defer func() {
				if closeErr := keeper.Close(); closeErr != nil {
					c.Logger().Warn("failed to close KMS keeper", slog.Any("error", closeErr))
				}
			}()

			chain, err := kms.LoadWrappedMasterKeyChain(context.Background(), keeper)
			if err != nil {
				c.initErrors["masterChain"] = fmt.Errorf("failed to unwrap master keys: %w", err)
				return
			}
			c.masterChain = chain
			return
		}

		chain, err := cryptoDomain.LoadMasterKeyChainFromEnv()
		if err != nil {
			c.initErrors["masterChain"] = fmt.Errorf("failed to load master keys: %w", err)
			return
		}
		c.masterChain = chain
	})
	if err, ok := c.initErrors["masterChain"]; ok {
		return nil, err
	}
	return c.masterChain, nil
}

// FieldCipher returns the field cipher bound to the master key chain.
func (c *Container) FieldCipher() (cryptoService.FieldCipher, error) {
	c.fieldCipherInit.Do(func() {
		chain, err := c.MasterKeyChain()
		if err != nil {
			c.initErrors["fieldCipher"] = err
			return
		}
		c.fieldCipher = cryptoService.NewFieldCipher(
			chain,
			cryptoService.NewAEADManager(),
			cryptoDomain.AESGCM,
		)
	})
	if err, ok := c.initErrors["fieldCipher"]; ok {
		return nil, err
	}
	return c.fieldCipher, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if err, ok := c.initErrors["metricsProvider"]; ok {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.bizMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if err, ok := c.initErrors["businessMetrics"]; ok {
		return nil, err
	}
	return c.businessMetrics, nil
}

// CredentialUseCase returns the credential vault use case.
func (c *Container) CredentialUseCase() (credentialUsecase.UseCase, error) {
	c.credentialUCInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["credentialUseCase"] = err
			return
		}
		repo, err := c.CredentialRepository()
		if err != nil {
			c.initErrors["credentialUseCase"] = err
			return
		}
		c.credentialUseCase = credentialUsecase.NewCredentialUseCase(c.config, txManager, repo, c.Hasher())
	})
	if err, ok := c.initErrors["credentialUseCase"]; ok {
		return nil, err
	}
	return c.credentialUseCase, nil
}

// TokenUseCase returns the token engine use case.
func (c *Container) TokenUseCase() (tokenUsecase.UseCase, error) {
	c.tokenUCInit.Do(func() {
		chain, err := c.SigningKeyChain()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
			return
		}
		revocationRepo, err := c.RevocationRepository()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
			return
		}
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
			return
		}
		signer := tokenService.NewJWTSigner(chain, c.config.TokenIssuer, c.config.TokenAudience)
		c.tokenUseCase = tokenUsecase.NewTokenUseCase(c.config, signer, revocationRepo, txManager)
	})
	if err, ok := c.initErrors["tokenUseCase"]; ok {
		return nil, err
	}
	return c.tokenUseCase, nil
}

// SessionUseCase returns the session state machine use case, wrapped with
// metrics instrumentation.
func (c *Container) SessionUseCase() (sessionUsecase.UseCase, error) {
	c.sessionUCInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
			return
		}
		sessionRepo, err := c.SessionRepository()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
			return
		}
		credentialUC, err := c.CredentialUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
			return
		}
		tokenUC, err := c.TokenUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
			return
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
			return
		}

		useCase := sessionUsecase.NewSessionUseCase(
			c.config,
			txManager,
			sessionRepo,
			credentialUC,
			tokenUC,
			c.Logger(),
		)
		c.sessionUseCase = sessionUsecase.NewSessionUseCaseWithMetrics(useCase, bm)
	})
	if err, ok := c.initErrors["sessionUseCase"]; ok {
		return nil, err
	}
	return c.sessionUseCase, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	// Key material is zeroed last, after everything using it has stopped.
	if c.signingChain != nil {
		c.signingChain.Close()
	}
	if c.masterChain != nil {
		c.masterChain.Close()
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a structured logger based on the configured log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
