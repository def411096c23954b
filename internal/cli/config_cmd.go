// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/relay/internal/config"
)

// HandleConfig runs "relay config <subcommand>".
func HandleConfig(args Args, streams Streams) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args, streams)
	case "path":
		path, err := configFile(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(streams.Out, path)
		return nil
	case "init":
		return configInit(args, streams)
	case "get":
		return configGet(args, streams)
	case "set":
		return configSet(args, streams)
	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(streams.Out, k)
		}
		return nil
	}
	return &UsageError{
		Message: fmt.Sprintf("unknown config subcommand %q", args.Subcommand),
		Hint:    "use show, path, init, get, set or keys",
	}
}

// configFile returns the explicit, existing or default config location.
func configFile(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	path, err := config.FindConfigFile()
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}
	return config.ConfigPathTOML()
}

func configShow(args Args, streams Streams) error {
	cfg, path, err := loadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	if args.JSON {
		return outputJSON(streams.Out, cfg.Redacted())
	}
	if path == "" {
		path = "(defaults)"
	}
	fmt.Fprintln(streams.Err, DimStyle.Render("# "+path))
	fmt.Fprint(streams.Out, cfg.String())
	return nil
}

func configInit(args Args, streams Streams) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !args.Force {
		return &CommandError{Command: "config", Action: "init",
			Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
	}
	if err := config.SaveToPath(config.Default(), path); err != nil {
		return &CommandError{Command: "config", Action: "init", Err: err}
	}
	fmt.Fprintln(streams.Out, SuccessStyle.Render("Wrote "+path))
	return nil
}

func configGet(args Args, streams Streams) error {
	if len(args.Positional) != 1 {
		return &UsageError{Message: "config get needs one key", Hint: "relay config keys lists them"}
	}
	cfg, _, err := loadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	key := args.Positional[0]
	val, err := cfg.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error(), Hint: "relay config keys lists valid keys"}
	}
	if config.IsSecretKey(key) {
		if s, _ := val.(string); s != "" {
			val = "[REDACTED]"
		}
	}
	fmt.Fprintln(streams.Out, fmtValue(val))
	return nil
}

// configSet edits the file on disk, not the merged config, so environment
// overrides are never written back.
func configSet(args Args, streams Streams) error {
	if len(args.Positional) < 2 {
		return &UsageError{Message: "config set needs a key and a value", Hint: "relay config set chat.history_turns 20"}
	}
	key := args.Positional[0]
	value := strings.Join(args.Positional[1:], " ")

	path, err := configFile(args)
	if err != nil {
		return err
	}
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = config.ReadFile(path)
		if err != nil {
			return err
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error(), Hint: "relay config keys lists valid keys"}
	}
	if err := cfg.Migrate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveToPath(cfg, path); err != nil {
		return &CommandError{Command: "config", Action: "set", Err: err}
	}

	shown := value
	if config.IsSecretKey(key) {
		shown = "[REDACTED]"
	}
	fmt.Fprintln(streams.Out, SuccessStyle.Render(fmt.Sprintf("%s = %s", key, shown)))
	return nil
}
