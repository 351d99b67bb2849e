package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MuriloKakazu/salesforcedx-apex/config"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/adapters/cometd"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/adapters/devpush"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/adapters/salesforce"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/metrics"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/progress"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/observability/statsd"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/service"
)

// Adapters bundles the wired collaborators for one tracking operation.
type Adapters struct {
	Tracker *service.Tracker
	// API is nil in dev mode; dev runs are started by external seeding.
	API   *salesforce.Client
	Sink  progress.Sink
	close []func() error
}

// Close releases adapter resources.
func (a *Adapters) Close() error {
	var first error
	for _, fn := range a.close {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildAdapters wires transport, credentials, query client, sinks, and the
// tracker from configuration. Dev mode swaps the org streaming endpoint for
// the Redis stand-in transport and query backend.
func BuildAdapters(cfg *config.AppConfig, logger *slog.Logger) (*Adapters, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapters{}

	sinks := progress.Fanout{progress.NewSlogSink(logger)}
	if cfg.Observability.Metrics.IsEnabled() {
		statsdClient, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Observability.Metrics.StatsdAddress,
			Prefix:  cfg.Observability.Metrics.Prefix,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build statsd client: %w", err)
		}
		a.close = append(a.close, statsdClient.Close)
		sinks = append(sinks, metrics.NewTrackerSink(statsdClient))
	}
	a.Sink = sinks

	var (
		transport   ports.Transport
		credentials ports.CredentialSource
		query       ports.QueryClient
		err         error
	)

	if cfg.IsDev {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.close = append(a.close, redisClient.Close)

		transport, err = devpush.New(devpush.Config{
			Client:        redisClient,
			Logger:        logger,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev transport: %w", err)
		}
		query, err = devpush.NewQueryClient(redisClient, cfg.Redis.ChannelPrefix)
		if err != nil {
			return nil, fmt.Errorf("build dev query client: %w", err)
		}
		credentials = devpush.StaticCredentials{}
	} else {
		credentials, err = salesforce.NewCredentialSource(salesforce.CredentialConfig{
			ClientID:     cfg.Connection.ClientID,
			ClientSecret: cfg.Connection.ClientSecret,
			RefreshToken: cfg.Connection.RefreshToken,
			TokenURL:     cfg.Connection.TokenURL(),
		})
		if err != nil {
			return nil, fmt.Errorf("build credential source: %w", err)
		}

		api, cerr := salesforce.NewClient(salesforce.ClientConfig{
			InstanceURL: cfg.Connection.InstanceURL,
			APIVersion:  cfg.Connection.APIVersion,
			Credentials: credentials,
			Logger:      logger,
		})
		if cerr != nil {
			return nil, fmt.Errorf("build API client: %w", cerr)
		}
		a.API = api
		query = api

		transport, err = cometd.New(cometd.Config{
			URL:     cfg.Connection.StreamingURL(),
			Timeout: cfg.Streaming.RequestTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build streaming transport: %w", err)
		}
	}

	tracker, err := service.NewTracker(service.TrackerOptions{
		Transport:   transport,
		Credentials: credentials,
		Query:       query,
		Channel:     cfg.Streaming.Channel,
		Sink:        a.Sink,
		IdleCeiling: cfg.Streaming.Timeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build tracker: %w", err)
	}
	a.Tracker = tracker

	return a, nil
}
