package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"idc-qnn/internal/config"
	"idc-qnn/internal/pipeline"
	"idc-qnn/pkg/logger"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <%s|%s>\n", os.Args[0], pipeline.ModeTrain, pipeline.ModeEvaluate)
	flag.PrintDefaults()
}

func main() {
	cfgPath := flag.String("config", "configs/idc.yaml", "Path to YAML config")
	dirTrain := flag.String("dir-train", "", "Override the class-directory image root")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	seed := flag.Int64("seed", 0, "PRNG seed for shuffle, split and initialisation")
	numExamples := flag.Int("num-examples", 0, "Train on the first N examples only")
	workers := flag.Int("workers", 0, "Number of simulation workers (0 sizes from the host)")
	pretty := flag.Bool("pretty", false, "Human readable console logs")
	flag.Usage = usage

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	mode := strings.ToLower(flag.Arg(0))

	bootLog := logger.New(logger.Config{Level: "info", Pretty: *pretty})
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		bootLog.Fatal().Err(err).Str("path", *cfgPath).Msg("Failed to load config")
	}

	overrides := config.Overrides{
		DirTrain:    *dirTrain,
		Epochs:      *epochs,
		BatchSize:   *batchSize,
		NumExamples: *numExamples,
		Workers:     *workers,
	}
	// -seed applies only when given, -seed 0 included.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			overrides.Seed = seed
		}
	})
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid config")
	}

	if !cfg.ModeAllowed(mode) {
		fmt.Fprintf(flag.CommandLine.Output(), "unknown mode %q (allowed: %s)\n", mode, strings.Join(cfg.Modes, ", "))
		flag.Usage()
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: *pretty})
	log.Info().Str("mode", mode).Str("config", *cfgPath).Int("dim", cfg.Data.Dim).Msg("Starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	rep, err := p.Run(ctx, mode)
	if err != nil {
		stop()
		log.Fatal().Err(err).Str("mode", mode).Msg("Run failed")
	}
	log.Info().
		Str("run_id", rep.RunID).
		Float64("test_loss", rep.Test.Loss).
		Float64("test_hinge_accuracy", rep.Test.Accuracy).
		Msg("Done")
}
