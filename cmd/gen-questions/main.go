// Package main generates a YAML question bank with a language model.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/question"
	"github.com/cory-johannsen/quizwar/internal/observability"
	"github.com/cory-johannsen/quizwar/internal/questiongen"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults")
	out := flag.String("out", "questions.yaml", "output YAML path")
	topic := flag.String("topic", "", "question topic; empty means general knowledge")
	count := flag.Int("count", 0, "override generator.count")
	avoidPath := flag.String("avoid", "", "existing bank whose questions must not be repeated")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *count > 0 {
		cfg.Generator.Count = *count
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	req := questiongen.Request{Count: cfg.Generator.Count, Topic: *topic}
	if *avoidPath != "" {
		existing, err := question.LoadFile(*avoidPath)
		if err != nil {
			logger.Fatal("loading avoid bank", zap.String("path", *avoidPath), zap.Error(err))
		}
		for _, q := range existing.All() {
			req.Avoid = append(req.Avoid, q.Text)
		}
	}

	ctx := context.Background()
	if cfg.Generator.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Generator.Timeout)
		defer cancel()
	}

	provider, err := questiongen.NewProvider(ctx, cfg.Generator, os.Getenv)
	if err != nil {
		logger.Fatal("creating provider", zap.String("provider", cfg.Generator.Provider), zap.Error(err))
	}
	defer provider.Close()

	bank, err := questiongen.NewGenerator(provider, logger).Generate(ctx, req)
	if err != nil {
		logger.Fatal("generating questions", zap.Error(err))
	}
	data, err := question.Marshal(bank)
	if err != nil {
		logger.Fatal("encoding questions", zap.Error(err))
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Fatal("writing questions", zap.String("path", *out), zap.Error(err))
	}

	logger.Info("question bank written",
		zap.String("path", *out),
		zap.Int("questions", bank.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
