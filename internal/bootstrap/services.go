package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/entropix/entropy-certify/config"
	"github.com/entropix/entropy-certify/internal/adapters/dispatch"
	"github.com/entropix/entropy-certify/internal/adapters/executor"
	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/data"
	"github.com/entropix/entropy-certify/internal/domain/model"
	"github.com/entropix/entropy-certify/internal/observability/notify/slack"
	"github.com/entropix/entropy-certify/internal/observability/statsd"
	"github.com/entropix/entropy-certify/internal/service"
	"github.com/entropix/entropy-certify/internal/service/failurenotifier"
)

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Jobs    *data.ValidationJobRepo
	Chunks  *data.ChunkResultRepo
	Samples *data.SampleRepo
	Cache   *data.RedisCacheRepo

	Pool       *dispatch.Pool
	Dispatcher *dispatch.Dispatcher

	Worker      *service.WorkerService
	Validations *service.ValidationService
	Sync        *service.SyncValidationService
	Recovery    *service.RecoveryService

	Metrics  *statsd.Client
	Notifier *failurenotifier.Service
}

// BuildOptions carries the external resources services are built on.
type BuildOptions struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient // optional: nil disables the result cache
	Logger *slog.Logger
}

// BuildServices wires repositories, executors, the worker pool, and the
// services on top of them. The context is used for one-time setup calls such
// as OIDC endpoint discovery.
func BuildServices(ctx context.Context, opts BuildOptions) (*ServiceContainer, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}

	repoCfg := data.RepoConfig{Logger: logger}
	jobs := data.NewValidationJobRepo(opts.DB, repoCfg)
	chunks := data.NewChunkResultRepo(opts.DB, repoCfg)
	samples := data.NewSampleRepo(opts.DB, repoCfg)

	var cache *data.RedisCacheRepo
	if opts.Redis != nil {
		cache = data.NewRedisCacheRepo(opts.Redis)
	}

	executors, err := buildExecutors(ctx, cfg.Validation.Executors, logger)
	if err != nil {
		return nil, err
	}
	policies := cfg.Validation.Policies()

	notifier := buildNotifier(cfg.Observability.Notifications, logger)

	worker := service.MustNewWorkerService(service.WorkerOptions{
		Jobs:            jobs,
		Chunks:          chunks,
		Samples:         samples,
		Executors:       executors,
		Policies:        policies,
		ChunkTimeout:    cfg.Validation.ChunkTimeout,
		Logger:          logger,
		Metrics:         metrics,
		FailureNotifier: notifier,
	})

	pool := dispatch.NewPool(dispatch.PoolOptions{
		Workers:       cfg.Validation.Workers,
		QueueCapacity: cfg.Validation.QueueCapacity,
		Logger:        logger,
		Metrics:       metrics,
	})
	dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherOptions{
		DB:      opts.DB,
		Jobs:    jobs,
		Pool:    pool,
		Process: worker.Process,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	var resultCache core.ResultCache
	if cache != nil {
		resultCache = cache
	}
	validations := service.MustNewValidationService(service.ValidationServiceOptions{
		Jobs:       jobs,
		Chunks:     chunks,
		Dispatcher: dispatcher,
		Policies:   policies,
		Admission:  service.NewAdmissionPolicy(jobs, cfg.Validation.AdmissionLimit),
		Cache:      resultCache,
		CacheTTL:   cfg.Redis.ResultTTL,
		Logger:     logger,
		Metrics:    metrics,
	})
	syncValidation := service.MustNewSyncValidationService(service.SyncValidationOptions{
		Chunks:       chunks,
		Samples:      samples,
		Executors:    executors,
		Policies:     policies,
		ChunkTimeout: cfg.Validation.ChunkTimeout,
		Logger:       logger,
		Metrics:      metrics,
	})
	recovery, err := service.NewRecoveryService(service.RecoveryOptions{
		Jobs:    jobs,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("recovery service: %w", err)
	}

	return &ServiceContainer{
		Jobs:        jobs,
		Chunks:      chunks,
		Samples:     samples,
		Cache:       cache,
		Pool:        pool,
		Dispatcher:  dispatcher,
		Worker:      worker,
		Validations: validations,
		Sync:        syncValidation,
		Recovery:    recovery,
		Metrics:     metrics,
		Notifier:    notifier,
	}, nil
}

// buildExecutors constructs the per-suite executor clients with a shared
// token supplier.
func buildExecutors(
	ctx context.Context,
	cfg config.ExecutorConfig,
	logger *slog.Logger,
) (map[model.ValidationType]core.TestExecutor, error) {
	var tokens executor.TokenSupplier
	switch {
	case cfg.StaticToken != "":
		tokens = executor.StaticTokenSupplier(cfg.StaticToken)
	case cfg.Auth.Enabled():
		supplier, err := executor.NewOAuthTokenSupplier(ctx, executor.OAuthTokenConfig{
			IssuerURL:    cfg.Auth.IssuerURL,
			TokenURL:     cfg.Auth.TokenURL,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Scopes:       cfg.Auth.Scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("executor token supplier: %w", err)
		}
		tokens = supplier
	}

	httpClient := &http.Client{}

	suiteA, err := executor.NewSuiteA(executor.ClientOptions{
		BaseURL:    cfg.SuiteAURL,
		HTTPClient: httpClient,
		Tokens:     tokens,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("suite_a executor: %w", err)
	}

	suiteB, err := executor.NewSuiteB(executor.ClientOptions{
		BaseURL:    cfg.SuiteBURL,
		HTTPClient: httpClient,
		Tokens:     tokens,
		Logger:     logger,
	}, executor.DefaultSuiteBExtraction())
	if err != nil {
		return nil, fmt.Errorf("suite_b executor: %w", err)
	}

	return map[model.ValidationType]core.TestExecutor{
		model.ValidationTypeSuiteA: suiteA,
		model.ValidationTypeSuiteB: suiteB,
	}, nil
}

// buildNotifier assembles the failure notifier from the enabled sinks. With
// no sinks configured the notifier is a no-op.
func buildNotifier(
	cfg config.ObservabilityNotificationsConfig,
	logger *slog.Logger,
) *failurenotifier.Service {
	var sinks []failurenotifier.SinkRegistration

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("slack notifier disabled", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{Logger: logger, Sinks: sinks})
}
