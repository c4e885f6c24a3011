// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/config"
	"github.com/flatrent/flatrent/internal/xdg"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	config.BindFlags(show.Flags())
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a YAML config file against the configuration schema",
		Long: `Validate a YAML config file against the configuration schema. Without
an argument the --config file, or the default XDG config file, is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigValidate,
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write a starter config file with a generated JWT secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, args, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	cmd.Print(string(out))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path, err := configTarget(args)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
	}
	if err := config.ValidateYAML(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}

	cmd.Printf("%s is valid\n", path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string, force bool) error {
	path, err := configTarget(args)
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("%s already exists; pass --force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	secret, _, err := auth.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	cfg := config.Default()
	cfg.Auth.JWTSecret = secret

	out, err := cfg.Encode()
	if err != nil {
		return err
	}

	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}

	cmd.Printf("Wrote %s\n", path)
	return nil
}

// configTarget picks the file named on the command line, then --config, then
// the XDG default.
func configTarget(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if configFile != "" {
		return configFile, nil
	}
	return xdg.DefaultConfigFile()
}
