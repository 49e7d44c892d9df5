// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/jeeves/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// ConfigAction selects a config subcommand.
type ConfigAction string

const (
	ConfigShow ConfigAction = "show"
	ConfigGet  ConfigAction = "get"
	ConfigSet  ConfigAction = "set"
	ConfigKeys ConfigAction = "keys"
	ConfigInit ConfigAction = "init"
	ConfigPath ConfigAction = "path"
)

// ConfigArgs holds the arguments of the config command.
type ConfigArgs struct {
	Action ConfigAction
	Key    string
	Value  string

	// File is the config file written by set and init (empty = default TOML)
	File string

	// Force lets init overwrite an existing file
	Force bool
}

// HandleConfig shows or edits the configuration.
func HandleConfig(out Output, cfg *config.Config, args ConfigArgs) error {
	return out.Emit("config "+string(args.Action), func() (any, error) {
		return configAction(cfg, args)
	}, func(w io.Writer, data any) {
		switch v := data.(type) {
		case *config.Config:
			fmt.Fprintln(w, v.String())
		case []string:
			for _, k := range v {
				fmt.Fprintln(w, k)
			}
		default:
			fmt.Fprintln(w, v)
		}
	})
}

func configAction(cfg *config.Config, args ConfigArgs) (any, error) {
	switch args.Action {
	case ConfigShow, "":
		return cfg, nil

	case ConfigGet:
		return cfg.Get(args.Key)

	case ConfigKeys:
		return config.GetAllKeys(), nil

	case ConfigPath:
		return configFile(args.File)

	case ConfigSet:
		next := cfg.Clone()
		if err := next.Set(args.Key, args.Value); err != nil {
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, err
		}
		path, err := configFile(args.File)
		if err != nil {
			return nil, err
		}
		if err := config.SaveTOML(next, path); err != nil {
			return nil, err
		}
		*cfg = *next
		return cfg.Get(args.Key)

	case ConfigInit:
		path, err := configFile(args.File)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err == nil && !args.Force {
			return nil, fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return nil, err
		}
		return path, nil
	}
	return nil, fmt.Errorf("unknown config action %q", args.Action)
}

func configFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return config.ConfigPathTOML()
}
