// Package main provides an interactive dry run of a single story arc. Commands
// are read from stdin, one per line: a choice id, "back", "restart",
// "begin <storylet>", "flags", "history" or "quit".
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/config"
	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/arcsim"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

func main() {
	configPath := flag.String("config", "configs/storyweave.yaml", "path to configuration file")
	arc := flag.String("arc", "", "story arc to walk (required)")
	startID := flag.String("start", "", "storylet to start on (default: first storylet of the arc)")
	contentDir := flag.String("content", "", "storylet content directory (overrides content.dir)")
	seed := flag.String("flags", "", "comma-separated flags set true at the start of the walk")
	flag.Parse()

	if *arc == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *contentDir != "" {
		cfg.Content.Dir = *contentDir
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	reg, err := storylet.Loader{Strict: cfg.Content.Strict}.LoadDir(cfg.Content.Dir)
	if err != nil {
		logger.Fatal("loading storylets", zap.Error(err))
	}

	w, err := arcsim.New(reg, *arc, parseFlags(*seed), logger)
	if err != nil {
		logger.Fatal("creating walker", zap.Error(err), zap.Strings("arcs", reg.Arcs()))
	}
	logger.Info("arc simulation started",
		zap.String("session", w.ID().String()),
		zap.String("arc", *arc),
		zap.Int("storylets", len(w.Storylets())),
	)

	start := *startID
	if start == "" {
		start = w.Storylets()[0].ID
	}
	if err := w.Begin(start); err != nil {
		logger.Fatal("starting walk", zap.Error(err))
	}

	if err := newREPL(w, os.Stdout).Run(os.Stdin); err != nil {
		logger.Fatal("reading commands", zap.Error(err))
	}
}

func parseFlags(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out[f] = true
		}
	}
	return out
}
