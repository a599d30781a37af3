// Package main provides an interactive playtest of storylet content against
// a world state. Minigames are resolved with the dice checks from the
// configured minigame file; the final state can be saved as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/config"
	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/engine"
	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/minigame"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

func main() {
	configPath := flag.String("config", "configs/storyweave.yaml", "path to configuration file")
	contentDir := flag.String("content", "", "storylet content directory (overrides content.dir)")
	statePath := flag.String("state", "", "initial world state JSON file (default: day 1, empty state)")
	savePath := flag.String("save", "", "write the final world state to this JSON file")
	seed := flag.Uint64("seed", 0, "dice seed for reproducible runs (0: crypto randomness)")
	flag.Parse()

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
	var clues []graph.ClueOutcome
	if cfg.Content.ClueFile != "" {
		if clues, err = graph.LoadCluesFromFile(cfg.Content.ClueFile); err != nil {
			logger.Fatal("loading clue outcomes", zap.Error(err))
		}
	}
	eng, err := engine.New(reg, clues, cfg, logger)
	if err != nil {
		logger.Fatal("building engine", zap.Error(err))
	}

	var resolver *minigame.Resolver
	if cfg.Content.MinigameFile != "" {
		table, err := minigame.LoadTableFromFile(cfg.Content.MinigameFile)
		if err != nil {
			logger.Fatal("loading minigames", zap.Error(err))
		}
		src := minigame.NewCryptoSource()
		if *seed != 0 {
			src = minigame.NewSeededSource(*seed)
		}
		resolver = minigame.NewResolver(table, src, logger)
	}

	state := storylet.WorldState{Day: 1}
	if *statePath != "" {
		if state, err = readState(*statePath); err != nil {
			logger.Fatal("reading world state", zap.Error(err))
		}
	}

	s := newSession(eng, resolver, state, os.Stdout)
	if err := s.Run(os.Stdin); err != nil {
		logger.Fatal("reading commands", zap.Error(err))
	}

	if *savePath != "" {
		data, err := json.MarshalIndent(s.State(), "", "  ")
		if err != nil {
			logger.Fatal("encoding world state", zap.Error(err))
		}
		if err := os.WriteFile(*savePath, append(data, '\n'), 0644); err != nil {
			logger.Fatal("saving world state", zap.Error(err))
		}
		logger.Info("world state saved", zap.String("path", *savePath), zap.Int("day", s.State().Day))
	}
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
