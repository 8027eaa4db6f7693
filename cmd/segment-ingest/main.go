package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/cart-offers/internal/ingest"
	"github.com/xenking/cart-offers/pkg/offerclient"
)

// Config holds the ingest configuration, loadable from environment variables
// (OFFERS_INGEST_ prefix), flags, or YAML config files.
type Config struct {
	Server        string        `default:"http://localhost:5001" usage:"Offer server base URL"`
	Files         []string      `usage:"Gzip-compressed user_id,segment files, ingested in order"`
	Workers       int           `default:"8" usage:"Concurrent writers"`
	Timeout       time.Duration `default:"10s" usage:"Per-request timeout"`
	ExpectedUsers uint          `default:"1000000" usage:"Expected distinct users, sizes the repeat filter" flag:"expected-users"`
	Strict        bool          `default:"false" usage:"Fail on the first malformed line"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "OFFERS_INGEST",
		Files:     []string{"ingest.yaml", "/etc/offers/ingest.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if len(cfg.Files) == 0 {
		return nil, errors.New("at least one input file is required: set --files or OFFERS_INGEST_FILES")
	}
	return &cfg, nil
}

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, lg); err != nil {
		lg.Error("Segment ingest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := offerclient.New(cfg.Server, offerclient.WithTimeout(cfg.Timeout))
	if err := client.Health(ctx); err != nil {
		return errors.Wrapf(err, "check server %s", cfg.Server)
	}

	start := time.Now()
	in := ingest.New(lg, client, ingest.Config{
		Workers:       cfg.Workers,
		ExpectedUsers: cfg.ExpectedUsers,
		Strict:        cfg.Strict,
	})
	lg.Info("Ingesting segments",
		zap.Strings("files", cfg.Files),
		zap.Int("workers", cfg.Workers),
		zap.String("server", cfg.Server),
	)
	runErr := in.Run(ctx, cfg.Files)

	stats := in.Stats()
	lg.Info("Segment ingest finished",
		zap.Int64("lines", stats.Lines),
		zap.Int64("written", stats.Written),
		zap.Int64("invalid", stats.Invalid),
		zap.Int64("repeats", stats.Repeats),
		zap.Duration("duration", time.Since(start)),
	)
	return runErr
}
