// jeeves - on-device task classification with a rule-based safety net.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/jeeves/internal/cli"
	"github.com/jeranaias/jeeves/internal/config"
	"github.com/jeranaias/jeeves/internal/router"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	json       bool
	mode       string
	model      string
	verbose    bool
}

// app carries state from the root pre-run into the subcommands.
type app struct {
	flags globalFlags
	cfg   *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := a.rootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if !a.flags.json {
			fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error: "+err.Error()))
		}
		stop()
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "jeeves",
		Short:         "Classify and parse tasks on-device, falling back to rules",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ~/.jeeves/config.toml)")
	pf.BoolVar(&a.flags.json, "json", false, "print JSON instead of text")
	pf.StringVar(&a.flags.mode, "mode", "", "routing mode: rule_based_only, model_only, hybrid, hybrid_secondary")
	pf.StringVar(&a.flags.model, "model", "", "GGUF model file for the on-device engine")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log routing and engine events to stderr")

	root.AddCommand(
		a.classifyCommand(),
		a.runCommand(),
		a.benchCommand(),
		a.historyCommand(),
		a.statusCommand(),
		a.configCommand(),
	)
	return root
}

// setup loads the configuration and applies the global flags.
func (a *app) setup() error {
	log.SetOutput(io.Discard)
	if a.flags.verbose {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	}
	cli.ConfigureColors()

	var (
		cfg *config.Config
		err error
	)
	if a.flags.configPath != "" {
		cfg, err = config.LoadFromPath(a.flags.configPath)
		if err != nil {
			return err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return err
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, cli.WarningStyle.Render("Warning: "+err.Error()+" (using defaults)"))
		}
	}

	if a.flags.mode != "" {
		m, err := router.ParseMode(a.flags.mode)
		if err != nil {
			return err
		}
		cfg.Routing.Mode = m.String()
	}
	if a.flags.model != "" {
		cfg.Engine.ModelPath = a.flags.model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) output() cli.Output {
	return cli.Output{W: os.Stdout, JSON: a.flags.json}
}

// withStack builds and initializes the provider stack, runs fn, then
// releases every tier.
func (a *app) withStack(ctx context.Context, fn func(*cli.Stack) error) error {
	s, err := cli.NewStack(a.cfg)
	if err != nil {
		return err
	}
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Printf("ROUTING | release err=%v", cerr)
		}
	}()
	return fn(s)
}

// errInterrupted is reported instead of context.Canceled after Ctrl-C.
var errInterrupted = errors.New("interrupted")

func interrupted(err error) error {
	if errors.Is(err, context.Canceled) {
		return errInterrupted
	}
	return err
}
