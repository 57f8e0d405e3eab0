// Command captiond serves speaker attribution, transcription and caption
// management over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/captionkit/api"
	"github.com/kbukum/captionkit/bootstrap"
	"github.com/kbukum/captionkit/caption"
	"github.com/kbukum/captionkit/config"
	"github.com/kbukum/captionkit/database"
	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/media"
	"github.com/kbukum/captionkit/observability"
	"github.com/kbukum/captionkit/process"
	"github.com/kbukum/captionkit/provider"
	"github.com/kbukum/captionkit/redis"
	"github.com/kbukum/captionkit/resilience"
	"github.com/kbukum/captionkit/server"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/speaker/ffmpeg"
	"github.com/kbukum/captionkit/transcription"
	"github.com/kbukum/captionkit/transcription/whisper"
)

func main() {
	// Keys absent from the file keep the engine defaults, so a threshold
	// may be configured as zero.
	cfg := Config{Speaker: speaker.DefaultConfig()}
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "captiond: %v\n", err)
		os.Exit(1)
	}
	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "captiond: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), app); err != nil {
		app.Logger.Fatal("captiond exited with error", logger.ErrorFields("run", err))
	}
}

func run(ctx context.Context, app *bootstrap.App[*Config]) error {
	cfg := app.Cfg
	log := app.Logger

	if cfg.Observability.Enabled {
		if err := initTelemetry(ctx, app); err != nil {
			return err
		}
	}
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	db, err := database.OpenSQLite(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if err := app.Register(&databaseComponent{db: db, dsn: cfg.Database.DSN}); err != nil {
		return err
	}
	store := caption.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate captions: %w", err)
	}

	var cache caption.ResultCache
	if cfg.Redis.Enabled {
		client, err := redis.New(cfg.Redis, log)
		if err != nil {
			return err
		}
		if err := app.Register(&redisComponent{client: client, addr: cfg.Redis.Addr}); err != nil {
			return err
		}
		cache = caption.NewRedisResultCache(client, cfg.Redis.TTL())
	}

	breaker := resilience.DefaultCircuitBreakerConfig("ffmpeg")
	runner := process.NewRunner(provider.ResilienceConfig{CircuitBreaker: &breaker})
	toolkit := media.New(cfg.Media, runner, log)
	if err := app.Register(&mediaComponent{tk: toolkit}); err != nil {
		return err
	}

	// Feature measurement runs without the breaker: a clip that cannot be
	// measured already falls back per segment, and no detection may be
	// influenced by the failures of another.
	engine, err := newEngine(cfg, media.New(cfg.Media, process.Direct, log), log, metrics)
	if err != nil {
		return err
	}

	manager := transcription.NewManager(transcription.WithPriority(cfg.Transcription.Providers...))
	manager.Register(whisper.ProviderName, whisper.Factory())
	if err := manager.Initialize(whisper.ProviderName, map[string]any{
		"base_url":       cfg.Whisper.BaseURL,
		"api_key":        cfg.Whisper.APIKey,
		"api_key_header": cfg.Whisper.APIKeyHeader,
		"model":          cfg.Whisper.Model,
		"timeout":        cfg.Whisper.Timeout,
	}); err != nil {
		log.Warn("whisper backend disabled, transcription will be unavailable", logger.ErrorFields("whisper", err))
	}
	transcriber, err := transcription.NewService(cfg.Transcription, manager, toolkit, engine)
	if err != nil {
		return err
	}
	transcriber.WithMetrics(metrics)

	handler, err := api.NewHandler(cfg.API, api.Deps{
		Detector:    engine,
		Transcriber: transcriber,
		Store:       store,
		Cache:       cache,
	})
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(metrics)
	srv.RegisterDefaultEndpoints(cfg.Name, app.HealthCheckers()...)
	handler.Register(srv.GinEngine())
	if err := app.Register(&httpComponent{srv: srv}); err != nil {
		return err
	}

	return app.Run(ctx)
}

// newEngine wires the ffmpeg feature provider, wrapped in the provider
// middlewares, into the speaker engine.
func newEngine(cfg *Config, tk *media.Toolkit, log *logger.Logger, metrics *observability.Metrics) (*speaker.Engine, error) {
	var measured speaker.FeatureProvider = ffmpeg.New(cfg.FFmpeg, tk)
	measured = provider.Chain(
		provider.WithTracing[speaker.Clip, speaker.AudioFeatures]("speaker.ffmpeg"),
		provider.WithMetrics[speaker.Clip, speaker.AudioFeatures](metrics),
		provider.WithLogging[speaker.Clip, speaker.AudioFeatures](log.WithComponent("speaker.ffmpeg")),
	)(measured)

	return speaker.NewEngine(cfg.Speaker,
		speaker.WithProvider(measured),
		speaker.WithLogger(log.WithComponent("speaker")),
		speaker.WithMetrics(metrics),
	)
}

func initTelemetry(ctx context.Context, app *bootstrap.App[*Config]) error {
	oc := app.Cfg.Observability
	tp, err := observability.InitTracer(ctx, oc)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	mp, err := observability.InitMeter(ctx, oc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("meter: %w", err)
	}
	app.OnStop(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	})
	return nil
}
