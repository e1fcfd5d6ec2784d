package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/localvault/cmd/app/commands"
	"github.com/allisson/localvault/internal/app"
	"github.com/allisson/localvault/internal/config"
)

func getSecretCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init",
			Usage: "Initialize the vault: create the store directory and master key",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunInit(ctx, secretUseCase, container.Logger(), commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "store",
			Usage: "Encrypt and store a secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Secret name",
				},
				&cli.StringFlag{
					Name:    "value",
					Aliases: []string{"v"},
					Value:   "",
					Usage:   "Secret value (prompted on stdin when omitted)",
				},
				&cli.StringFlag{
					Name:    "description",
					Aliases: []string{"d"},
					Value:   "",
					Usage:   "Human-readable description",
				},
				&cli.StringFlag{
					Name:    "tags",
					Aliases: []string{"t"},
					Value:   "",
					Usage:   "Comma-separated tags",
				},
				&cli.StringFlag{
					Name:  "expires-at",
					Value: "",
					Usage: "Expiry timestamp in RFC 3339 format (e.g., 2027-01-01T00:00:00Z)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunStore(
					ctx,
					secretUseCase,
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("name"),
					cmd.String("value"),
					cmd.String("description"),
					cmd.String("tags"),
					cmd.String("expires-at"),
				)
			},
		},
		{
			Name:  "get",
			Usage: "Decrypt and print a secret value",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Secret name",
				},
				&cli.StringFlag{
					Name:    "user-id",
					Aliases: []string{"u"},
					Value:   "",
					Usage:   "Requesting user ID for the audit trail",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunGet(
					ctx,
					secretUseCase,
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("user-id"),
				)
			},
		},
		{
			Name:  "update",
			Usage: "Re-encrypt an existing secret with a new value",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Secret name",
				},
				&cli.StringFlag{
					Name:    "value",
					Aliases: []string{"v"},
					Value:   "",
					Usage:   "New secret value (prompted on stdin when omitted)",
				},
				&cli.StringFlag{
					Name:    "description",
					Aliases: []string{"d"},
					Value:   "",
					Usage:   "Human-readable description",
				},
				&cli.StringFlag{
					Name:    "tags",
					Aliases: []string{"t"},
					Value:   "",
					Usage:   "Comma-separated tags",
				},
				&cli.StringFlag{
					Name:  "expires-at",
					Value: "",
					Usage: "Expiry timestamp in RFC 3339 format",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunUpdate(
					ctx,
					secretUseCase,
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("name"),
					cmd.String("value"),
					cmd.String("description"),
					cmd.String("tags"),
					cmd.String("expires-at"),
				)
			},
		},
		{
			Name:  "delete",
			Usage: "Delete a secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Secret name",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunDelete(
					ctx,
					secretUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
				)
			},
		},
		{
			Name:  "list",
			Usage: "List secret metadata, optionally filtered by tags",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "tags",
					Aliases: []string{"t"},
					Value:   "",
					Usage:   "Comma-separated tags; only secrets carrying all of them are listed",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format (text or json)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunList(
					ctx,
					secretUseCase,
					commands.DefaultIO().Writer,
					cmd.String("tags"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-master-key",
			Usage: "Re-encrypt every secret under a freshly generated master key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "new-password",
					Value: "",
					Usage: "New wrapping password for the key file (keeps the current one when omitted)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateMasterKey(
					ctx,
					secretUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("new-password"),
				)
			},
		},
		{
			Name:  "export",
			Usage: "Write the encrypted store as a JSON backup to stdout",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunExport(ctx, secretUseCase, commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "import",
			Usage: "Load secrets from a JSON backup read from stdin",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				secretUseCase, err := container.SecretUseCase()
				if err != nil {
					return err
				}

				return commands.RunImport(ctx, secretUseCase, container.Logger(), commands.DefaultIO())
			},
		},
	}
}
