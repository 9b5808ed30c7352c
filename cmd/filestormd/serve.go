package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/filestorm/internal/assetlog"
	"github.com/dshills/filestorm/internal/dropfolder"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/filerepo/base64adapter"
	"github.com/dshills/filestorm/internal/filerepo/gcsadapter"
	"github.com/dshills/filestorm/internal/filerepo/httpadapter"
	"github.com/dshills/filestorm/internal/filerepo/s3adapter"
	"github.com/dshills/filestorm/internal/httpapi"
)

// cmdConfig holds the logging configuration shared by all commands.
type cmdConfig struct {
	Format string `env:"LOG_FORMAT" env-default:"text" env-description:"Log output format (text or json)"`
	Level  string `env:"LOG_LEVEL" env-default:"info" env-description:"Log level (debug, info, warn, error)"`
}

// serveConfig holds the upload service configuration.
type serveConfig struct {
	Addr      string `env:"FILESTORM_ADDR" env-default:":8080" env-description:"HTTP listen address"`
	AuthToken string `env:"FILESTORM_AUTH_TOKEN" env-description:"Bearer token guarding /v1 routes (empty disables auth)"`
	Types     string `env:"FILESTORM_TYPES" env-description:"Comma-separated accepted file types (default pdf)"`
	Adapter   string `env:"FILESTORM_ADAPTER" env-default:"base64" env-description:"Upload backend: base64, http, s3, or gcs"`

	MaxBodyBytes   int64 `env:"FILESTORM_MAX_BODY_BYTES" env-default:"0" env-description:"JSON body limit in bytes (0 uses the server default)"`
	MaxUploadBytes int64 `env:"FILESTORM_MAX_UPLOAD_BYTES" env-default:"0" env-description:"Multipart body limit in bytes (0 uses the server default)"`
	RateLimitMax   int   `env:"FILESTORM_RATE_LIMIT" env-default:"0" env-description:"Requests allowed per client per minute (0 disables)"`

	HTTPEndpoint      string `env:"FILESTORM_HTTP_ENDPOINT" env-description:"Upload endpoint for the http adapter"`
	HTTPAuthorization string `env:"FILESTORM_HTTP_AUTHORIZATION" env-description:"Authorization header sent by the http adapter"`
	HTTPField         string `env:"FILESTORM_HTTP_FIELD" env-description:"Multipart field name used by the http adapter"`

	S3Bucket    string `env:"FILESTORM_S3_BUCKET" env-description:"Bucket for the s3 adapter"`
	S3Region    string `env:"FILESTORM_S3_REGION" env-default:"us-east-1" env-description:"Region for the s3 adapter"`
	S3Endpoint  string `env:"FILESTORM_S3_ENDPOINT" env-description:"Endpoint override for the s3 adapter (MinIO)"`
	S3AccessKey string `env:"FILESTORM_S3_ACCESS_KEY" env-description:"Access key for the s3 adapter"`
	S3SecretKey string `env:"FILESTORM_S3_SECRET_KEY" env-description:"Secret key for the s3 adapter"`
	S3KeyPrefix string `env:"FILESTORM_S3_PREFIX" env-description:"Object key prefix for the s3 adapter"`
	S3PublicURL string `env:"FILESTORM_S3_PUBLIC_URL" env-description:"Public base URL for s3 objects (empty presigns)"`

	GCSBucket    string `env:"FILESTORM_GCS_BUCKET" env-description:"Bucket for the gcs adapter"`
	GCSKeyPrefix string `env:"FILESTORM_GCS_PREFIX" env-description:"Object name prefix for the gcs adapter"`
	GCSPublicURL string `env:"FILESTORM_GCS_PUBLIC_URL" env-description:"Public base URL for gcs objects (empty signs)"`

	AssetLogDSN  string `env:"FILESTORM_ASSETLOG_DSN" env-description:"Asset log DSN: empty for memory, postgres:// or redis://"`
	DropDir      string `env:"FILESTORM_DROP_DIR" env-description:"Directory watched for file drops (empty disables)"`
	DropDocument string `env:"FILESTORM_DROP_DOC" env-default:"inbox" env-description:"Document receiving drop folder uploads"`
}

// createLogger creates a slog logger from the configuration
func createLogger(conf cmdConfig) *slog.Logger {
	var level slog.Level
	switch conf.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var zerologLogger zerolog.Logger
	if conf.Format == "json" {
		zerologLogger = zerolog.New(os.Stderr)
	} else {
		zerologLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()
	}

	loggerConfig := slogzerolog.Option{
		Level:  level,
		Logger: &zerologLogger,
	}.NewZerologHandler()

	logger := slog.New(loggerConfig)

	log.SetFlags(0)
	slog.SetDefault(logger)

	return logger
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload API server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var cmdConf cmdConfig
		if err := cleanenv.ReadEnv(&cmdConf); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load command config: %v\n", err)
			os.Exit(1)
		}
		logger := createLogger(cmdConf)

		var cfg serveConfig
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			logger.ErrorContext(ctx, "failed to load config", "error", err)
			os.Exit(1)
		}

		if err := serve(ctx, cfg, logger); err != nil {
			logger.ErrorContext(ctx, "server failed", "error", err)
			os.Exit(1)
		}
	},
}

// serve wires the upload subsystem to its backends and runs the HTTP
// server until a signal arrives.
func serve(ctx context.Context, cfg serveConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, closeAdapter, err := buildAdapter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}
	defer closeAdapter()

	backend, err := assetlog.Open(ctx, cfg.AssetLogDSN)
	if err != nil {
		return fmt.Errorf("open asset log: %w", err)
	}
	defer backend.Close()

	bus := event.NewBus()
	defer bus.Close()

	recorder, err := assetlog.NewRecorder(bus, backend, assetlog.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("attach asset recorder: %w", err)
	}
	defer recorder.Close()

	hubOpts := []httpapi.HubOption{
		httpapi.WithAdapter(adapter),
		httpapi.WithLogger(logger),
	}
	if types := splitTypes(cfg.Types); len(types) > 0 {
		hubOpts = append(hubOpts, httpapi.WithTypes(types))
	}
	hub := httpapi.NewHub(bus, hubOpts...)
	defer hub.Close()

	api, err := httpapi.NewServer(hub, httpapi.ServerConfig{
		AuthToken:      cfg.AuthToken,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitMax:   cfg.RateLimitMax,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	if cfg.DropDir != "" {
		sess, err := hub.Open(cfg.DropDocument)
		if err != nil {
			return fmt.Errorf("open drop document: %w", err)
		}
		folder, err := dropfolder.Watch(cfg.DropDir, sess.Extension().Registry(), dropfolder.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("watch drop folder: %w", err)
		}
		defer folder.Close()
		logger.InfoContext(ctx, "drop folder watching", "dir", cfg.DropDir, "document", cfg.DropDocument)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "upload api listening",
			"addr", cfg.Addr,
			"adapter", cfg.Adapter,
			"auth", cfg.AuthToken != "",
			"asset_log", cfg.AssetLogDSN != "",
			"endpoints", []string{"/health", "/v1/documents/{id}", "/v1/documents/{id}/files", "/v1/documents/{id}/events"},
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// buildAdapter selects the upload backend. The returned func releases
// adapter resources; for adapters that hold none it is a no-op.
func buildAdapter(ctx context.Context, cfg serveConfig) (filerepo.Adapter, func(), error) {
	noop := func() {}

	switch strings.ToLower(cfg.Adapter) {
	case "", "base64":
		return base64adapter.New(), noop, nil

	case "http":
		if cfg.HTTPEndpoint == "" {
			return nil, nil, fmt.Errorf("http adapter requires FILESTORM_HTTP_ENDPOINT")
		}
		var opts []httpadapter.Option
		if cfg.HTTPAuthorization != "" {
			opts = append(opts, httpadapter.WithHeader("Authorization", cfg.HTTPAuthorization))
		}
		if cfg.HTTPField != "" {
			opts = append(opts, httpadapter.WithFieldName(cfg.HTTPField))
		}
		return httpadapter.New(cfg.HTTPEndpoint, opts...), noop, nil

	case "s3":
		a, err := s3adapter.New(ctx, s3adapter.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			KeyPrefix: cfg.S3KeyPrefix,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, noop, nil

	case "gcs":
		a, err := gcsadapter.New(ctx, gcsadapter.Config{
			Bucket:    cfg.GCSBucket,
			KeyPrefix: cfg.GCSKeyPrefix,
			PublicURL: cfg.GCSPublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
}

// splitTypes parses the comma-separated accepted-type list.
func splitTypes(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
