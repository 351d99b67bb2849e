package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/sync/errgroup"

	"github.com/MuriloKakazu/salesforcedx-apex/config"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/bootstrap"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/service"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.ValidateConnectionConfig(&cfg); err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting apex test tracker",
		"dev", cfg.IsDev,
		"channel", cfg.Streaming.Channel,
		"api_version", cfg.Connection.APIVersion)

	adapters, err := bootstrap.BuildAdapters(&cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := adapters.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close adapters failed", "error", cerr)
		}
	}()

	start, err := startAction(&cfg, adapters)
	if err != nil {
		return err
	}

	var result service.Result
	g, gctx := errgroup.WithContext(ctx)
	// Surface the run id as soon as the start action resolves, independent of
	// completion.
	g.Go(func() error {
		id, werr := adapters.Tracker.RunID().Wait(gctx)
		if werr != nil {
			return nil // Subscribe reports the underlying failure
		}
		logger.InfoContext(gctx, "tracking test run", "run_id", id.String())
		return nil
	})
	g.Go(func() error {
		var serr error
		result, serr = adapters.Tracker.Subscribe(gctx, start)
		return serr
	})
	if err = g.Wait(); err != nil {
		return err
	}

	return printResult(result, cfg.ResultFilter)
}

// startAction builds the job starter: runTestsAsynchronous against the org,
// or the configured run id in dev mode.
func startAction(cfg *config.AppConfig, adapters *bootstrap.Adapters) (ports.StartAction, error) {
	if cfg.IsDev {
		devRunID := model.RunID(cfg.DevRunID)
		if !devRunID.Valid() {
			return nil, errors.New("dev mode requires a valid DEV_RUN_ID")
		}
		return func(context.Context) (model.RunID, error) {
			return devRunID, nil
		}, nil
	}

	if len(cfg.TestClassIDs) == 0 {
		return nil, errors.New("TEST_CLASS_IDS is required")
	}
	return func(ctx context.Context) (model.RunID, error) {
		return adapters.API.StartRun(ctx, cfg.TestClassIDs)
	}, nil
}

// printResult renders the terminal queue item as JSON, optionally projected
// through a JMESPath expression.
func printResult(result service.Result, filter string) error {
	out := any(result.QueueItem)

	if filter != "" {
		if _, err := jmespath.Compile(filter); err != nil {
			return fmt.Errorf("compile result filter: %w", err)
		}
		// Round-trip through generic JSON so the expression sees wire names.
		raw, err := json.Marshal(result.QueueItem)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		var doc any
		if err = json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
		out, err = jmespath.Search(filter, doc)
		if err != nil {
			return fmt.Errorf("apply result filter: %w", err)
		}
	}

	rendered, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Println(string(rendered))
	return nil
}
