package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/localvault/cmd/app/commands"
	"github.com/allisson/localvault/internal/app"
	"github.com/allisson/localvault/internal/config"
)

func getRBACCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-permission",
			Usage: "Register a permission for a resource and action",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Unique permission name",
				},
				&cli.StringFlag{
					Name:     "resource",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Resource the permission covers (e.g., shell, secrets)",
				},
				&cli.StringFlag{
					Name:     "action",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Action the permission grants, or * for all actions on the resource",
				},
				&cli.StringFlag{
					Name:  "time-window",
					Value: "",
					Usage: "Allowed time window as HH:MM-HH:MM (e.g., 09:00-17:00)",
				},
				&cli.StringFlag{
					Name:  "ip-allowlist",
					Value: "",
					Usage: "Comma-separated allowed IPs or CIDR blocks",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				return commands.RunCreatePermission(
					ctx,
					container.RBACUseCase(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("resource"),
					cmd.String("action"),
					cmd.String("time-window"),
					cmd.String("ip-allowlist"),
				)
			},
		},
		{
			Name:  "create-role",
			Usage: "Register a role with permissions and optional inheritance",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Unique role name",
				},
				&cli.StringFlag{
					Name:    "permissions",
					Aliases: []string{"p"},
					Value:   "",
					Usage:   "Comma-separated permission IDs",
				},
				&cli.StringFlag{
					Name:    "inherits",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Comma-separated IDs of roles to inherit from",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				return commands.RunCreateRole(
					ctx,
					container.RBACUseCase(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("permissions"),
					cmd.String("inherits"),
				)
			},
		},
		{
			Name:  "update-role",
			Usage: "Replace a role's permission and inheritance sets",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Required: true,
					Usage:    "Role ID",
				},
				&cli.StringFlag{
					Name:    "permissions",
					Aliases: []string{"p"},
					Value:   "",
					Usage:   "Comma-separated permission IDs",
				},
				&cli.StringFlag{
					Name:    "inherits",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Comma-separated IDs of roles to inherit from",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				return commands.RunUpdateRole(
					ctx,
					container.RBACUseCase(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("permissions"),
					cmd.String("inherits"),
				)
			},
		},
		{
			Name:  "resolve-permissions",
			Usage: "Print a role's effective permissions, including inherited ones",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "role-id",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Role ID",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				return commands.RunResolvePermissions(
					ctx,
					container.RBACUseCase(),
					commands.DefaultIO().Writer,
					cmd.String("role-id"),
				)
			},
		},
	}
}
