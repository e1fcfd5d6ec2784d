// Package main provides the entry point for the vault CLI.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "localvault",
		Usage:   "Local encrypted secret store with role-based access control",
		Version: "1.0.0",
	}
	cmd.Commands = append(cmd.Commands, getSecretCommands()...)
	cmd.Commands = append(cmd.Commands, getRBACCommands()...)
	cmd.Commands = append(cmd.Commands, getUserCommands()...)

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
