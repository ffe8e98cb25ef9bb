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
	"github.com/povarna/generative-ai-agents/med-agent/internal/setup"
	"github.com/povarna/generative-ai-agents/med-agent/internal/setup/logger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	keyword := flag.String("keyword", "", "keyword for the substring search (e.g. fever)")
	question := flag.String("question", "", "medical question to answer")
	strategy := flag.String("strategy", "rerank+narrative", "rerank+narrative, similarity+narrative or rerank+structured")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := setup.LoadConfig()
	appLogger := logger.New(cfg.LogLevel)

	deps, err := setup.Wire(ctx, cfg, &appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to load dependencies")
	}
	defer deps.Close()

	fmt.Println(deps.Service.Resolve(ctx, *keyword, *question, *strategy))
}
