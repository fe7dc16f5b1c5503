package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pboueke/pipa/internal/config"
	"github.com/pboueke/pipa/internal/logging"
	"github.com/pboueke/pipa/pkg/stage"
	"github.com/pboueke/pipa/pkg/stages"
	"github.com/pboueke/pipa/pkg/topology"
)

// loaded is everything a command needs to act on a topology file.
type loaded struct {
	path     string
	topo     *topology.Topology
	cfg      *config.Config
	logger   zerolog.Logger
	registry *stage.Registry
}

func loadTopology(cmd *cobra.Command, opts *options, path string) (*loaded, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve topology path: %w", err)
	}

	topo, err := topology.Load(abs)
	if err != nil {
		return nil, err
	}
	if topo.Name == "" {
		topo.Name = trimExt(filepath.Base(abs))
	}

	cfg, err := config.Load(config.Options{Run: topo.Run, EnvFile: opts.envFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	reg := stage.NewRegistry()
	if err := stages.RegisterBuiltins(reg); err != nil {
		return nil, err
	}

	return &loaded{path: abs, topo: topo, cfg: cfg, logger: logger, registry: reg}, nil
}

// loadConfig resolves configuration for commands without a topology.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(config.Options{EnvFile: opts.envFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
