// Package main provides a CLI that derives the storylet graph, its layered
// layout and validation issues from a content directory and writes them as
// JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/config"
	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/engine"
	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/storyweave.yaml", "path to configuration file")
	contentDir := flag.String("content", "", "storylet content directory (overrides content.dir)")
	clueFile := flag.String("clues", "", "clue outcome YAML file (overrides content.clue_file)")
	statePath := flag.String("state", "", "optional world state JSON file; adds the active set to the output")
	outPath := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *contentDir != "" {
		cfg.Content.Dir = *contentDir
	}
	if *clueFile != "" {
		cfg.Content.ClueFile = *clueFile
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
	var clues []graph.ClueOutcome
	if cfg.Content.ClueFile != "" {
		clues, err = graph.LoadCluesFromFile(cfg.Content.ClueFile)
		if err != nil {
			logger.Fatal("loading clue outcomes", zap.Error(err))
		}
	}
	logger.Info("content loaded",
		zap.String("dir", cfg.Content.Dir),
		zap.Int("storylets", reg.Len()),
		zap.Int("arcs", len(reg.Arcs())),
		zap.Int("clues", len(clues)),
	)

	eng, err := engine.New(reg, clues, cfg, logger)
	if err != nil {
		logger.Fatal("building engine", zap.Error(err))
	}
	doc, err := eng.Graph()
	if err != nil {
		logger.Fatal("deriving graph", zap.Error(err))
	}
	if *statePath != "" {
		state, err := readState(*statePath)
		if err != nil {
			logger.Fatal("reading world state", zap.Error(err))
		}
		doc.Active = eng.Active(state)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logger.Fatal("encoding graph", zap.Error(err))
	}
	out = append(out, '\n')
	if *outPath == "" {
		_, err = os.Stdout.Write(out)
	} else {
		err = os.WriteFile(*outPath, out, 0644)
	}
	if err != nil {
		logger.Fatal("writing graph", zap.Error(err))
	}

	logger.Info("graph written",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("edges", len(doc.Edges)),
		zap.Int("levels", len(doc.Levels)),
		zap.Bool("cyclic", doc.Cyclic),
		zap.Int("issues", len(doc.Issues)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func readState(path string) (storylet.WorldState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storylet.WorldState{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var state storylet.WorldState
	if err := json.Unmarshal(data, &state); err != nil {
		return storylet.WorldState{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return state, nil
}
