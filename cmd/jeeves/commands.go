// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/cli"
)

// =============================================================================
// INFERENCE COMMANDS
// =============================================================================

func (a *app) classifyCommand() *cobra.Command {
	var (
		op      string
		minConf float64
		stream  bool
	)
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Run one request (reads stdin when no text is given)",
		Example: `  jeeves classify "URGENT: production is down"
  jeeves classify --op parse_task "Call the dentist tomorrow at 3pm"
  echo "hello" | jeeves classify --op chat --stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, err := ai.ParseOperation(op)
			if err != nil {
				return err
			}
			input := strings.Join(args, " ")
			if input == "" {
				if !stdinIsPiped() {
					return fmt.Errorf("no input: pass text or pipe it on stdin")
				}
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				input = strings.TrimSpace(string(data))
			}

			return a.withStack(cmd.Context(), func(s *cli.Stack) error {
				w := cli.NewWorker(s)
				w.Start()
				defer w.Stop()
				err := cli.HandleClassify(cmd.Context(), a.output(), s, w, cli.ClassifyArgs{
					Operation:     operation,
					Input:         input,
					MinConfidence: minConf,
					Stream:        stream,
				})
				return interrupted(err)
			})
		},
	}
	cmd.Flags().StringVar(&op, "op", ai.OpClassifyPriority.String(), "operation: classify_priority, parse_task, chat, ...")
	cmd.Flags().Float64Var(&minConf, "min-confidence", 0, "escalate below this rule confidence (0 = config)")
	cmd.Flags().BoolVar(&stream, "stream", false, "print model output as it is generated")
	return cmd
}

func (a *app) runCommand() *cobra.Command {
	var (
		op    string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer one request per input line until EOF or :quit",
		Long: `Answer one request per line of standard input.

Commands:
  :stats        print routing counters
  :mode <name>  switch routing mode
  :op <name>    switch operation
  :quit         stop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			operation, err := ai.ParseOperation(op)
			if err != nil {
				return err
			}
			return a.withStack(cmd.Context(), func(s *cli.Stack) error {
				w := cli.NewWorker(s)
				w.Start()
				defer w.Stop()
				err := cli.HandleRun(cmd.Context(), cmd.InOrStdin(), a.output(), s, w, cli.RunArgs{
					Operation: operation,
					Watch:     watch,
					Prompt:    cli.IsTTY() && !a.flags.json,
				})
				return interrupted(err)
			})
		},
	}
	cmd.Flags().StringVar(&op, "op", ai.OpClassifyPriority.String(), "operation for each line")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the model when its file is replaced")
	return cmd
}

// =============================================================================
// BENCHMARK COMMANDS
// =============================================================================

func (a *app) benchCommand() *cobra.Command {
	var args cli.BenchArgs
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare accuracy and latency of each tier on a labelled sample set",
		Example: `  jeeves bench
  jeeves bench --providers rules,router --dataset tasks.json --misses`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStack(cmd.Context(), func(s *cli.Stack) error {
				return interrupted(cli.HandleBench(cmd.Context(), a.output(), s, args))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&args.Providers, "providers", "all", "comma-separated providers: rules, ondevice, ollama, router")
	f.StringVar(&args.Dataset, "dataset", "", "JSON sample file (default: built-in set)")
	f.Float64Var(&args.RatePerSecond, "rate", 0, "requests per second per provider (0 = config)")
	f.BoolVar(&args.NoSave, "no-save", false, "do not write the result or history")
	f.BoolVar(&args.Misses, "misses", false, "list samples each provider got wrong")
	return cmd
}

func (a *app) historyCommand() *cobra.Command {
	var args cli.HistoryArgs
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent benchmark runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.HandleHistory(cmd.Context(), a.output(), a.cfg, args)
		},
	}
	cmd.Flags().StringVar(&args.Provider, "provider", "", "only runs of this provider id")
	cmd.Flags().IntVar(&args.Limit, "limit", 20, "maximum rows")
	return cmd
}

// =============================================================================
// STATUS & CONFIG COMMANDS
// =============================================================================

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show host, engine and tier readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStack(cmd.Context(), func(s *cli.Stack) error {
				return cli.HandleStatus(a.output(), s)
			})
		},
	}
}

func (a *app) configCommand() *cobra.Command {
	var force bool
	handle := func(action cli.ConfigAction, key, value string) error {
		return cli.HandleConfig(a.output(), a.cfg, cli.ConfigArgs{
			Action: action,
			Key:    key,
			Value:  value,
			File:   a.flags.configPath,
			Force:  force,
		})
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return handle(cli.ConfigShow, "", "")
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return handle(cli.ConfigInit, "", "")
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return handle(cli.ConfigShow, "", "")
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one value (e.g. routing.mode)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return handle(cli.ConfigGet, args[0], "")
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value and save the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				return handle(cli.ConfigSet, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every settable key",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return handle(cli.ConfigKeys, "", "")
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return handle(cli.ConfigPath, "", "")
			},
		},
		initCmd,
	)
	return cmd
}

// stdinIsPiped reports whether classify should wait on stdin.
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice == 0
}
