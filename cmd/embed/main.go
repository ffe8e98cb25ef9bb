package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/povarna/generative-ai-agents/med-agent/internal/backfill"
	"github.com/povarna/generative-ai-agents/med-agent/internal/bedrock"
	"github.com/povarna/generative-ai-agents/med-agent/internal/setup"
	"github.com/povarna/generative-ai-agents/med-agent/internal/setup/logger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	modeEmbedding = "embedding"
	modeSearch    = "search"
)

type options struct {
	mode     string
	probes   int
	topK     int
	input    string
	backfill backfill.Options
}

func main() {
	mode := flag.String("mode", modeSearch, "embedding: backfill document embeddings, search: nearest documents for a word")
	probes := flag.Int("probes", 10, "ivfflat probes for vector search")
	topK := flag.Int("topk", 2, "number of nearest documents to return")
	input := flag.String("input", "", "word to search")
	minID := flag.Int64("min-id", 1, "first document id to embed")
	maxID := flag.Int64("max-id", 226272, "last document id to embed")
	batch := flag.Int64("batch", 500, "document ids per store query")
	workers := flag.Int("workers", 4, "concurrent embedding calls")
	all := flag.Bool("all", false, "re-embed documents that already have an embedding")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	opts := options{
		mode:   *mode,
		probes: *probes,
		topK:   *topK,
		input:  *input,
		backfill: backfill.Options{
			MinID:       *minID,
			MaxID:       *maxID,
			BatchSize:   *batch,
			Workers:     *workers,
			OnlyMissing: !*all,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, setup.LoadConfig(), opts)
	stop()
	if err != nil {
		log.Fatal().Err(err).Str("mode", opts.mode).Msg("Embed command failed")
	}
}

// run executes one mode and closes the document store before returning.
func run(ctx context.Context, cfg *setup.Config, opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	appLogger := logger.New(cfg.LogLevel)

	bedrockClient, err := bedrock.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("failed to create Bedrock client: %w", err)
	}
	titan := bedrock.NewTitanEmbedder(bedrockClient, cfg.TitanModelID, cfg.EmbeddingDimension)

	db, err := setup.ConnectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()

	if opts.mode == modeEmbedding {
		service := backfill.NewService(db, titan, &appLogger)
		result, err := service.Run(ctx, opts.backfill)
		log.Info().
			Int("updated", result.Updated).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Int("tokens", result.Tokens).
			Dur("duration", time.Since(start)).
			Msg("Backfill finished")
		return err
	}

	neighbors, err := backfill.Search(ctx, titan, db, opts.input, opts.probes, opts.topK)
	if err != nil {
		return err
	}
	fmt.Printf("search result by keyword: %s, search time: %s\n\n", opts.input, time.Since(start).Round(time.Millisecond))
	for _, n := range neighbors {
		fmt.Printf("id: %d, distance: %.4f, doc: %s\n", n.ID, n.Distance, n.Text)
	}
	return nil
}

func (o options) validate() error {
	switch o.mode {
	case modeEmbedding:
		if o.backfill.MaxID < o.backfill.MinID {
			return fmt.Errorf("max-id %d is below min-id %d", o.backfill.MaxID, o.backfill.MinID)
		}
		return nil
	case modeSearch:
		if o.input == "" {
			return fmt.Errorf("-input is required in search mode")
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %q, use embedding or search", o.mode)
	}
}
