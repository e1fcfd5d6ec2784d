package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/localvault/cmd/app/commands"
	"github.com/allisson/localvault/internal/app"
	"github.com/allisson/localvault/internal/config"
)

func getUserCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-user",
			Usage: "Register a user account with role assignments",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "username",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Unique username",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Value:   "",
					Usage:   "Password (prompted on stdin when omitted)",
				},
				&cli.StringFlag{
					Name:    "roles",
					Aliases: []string{"r"},
					Value:   "",
					Usage:   "Comma-separated role IDs",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateUser(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("username"),
					cmd.String("password"),
					cmd.String("roles"),
				)
			},
		},
		{
			Name:  "authenticate",
			Usage: "Run a login attempt and print the session tokens",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "username",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Value:   "",
					Usage:   "Password (prompted on stdin when omitted)",
				},
				&cli.StringFlag{
					Name:  "ip-address",
					Value: "127.0.0.1",
					Usage: "Client IP address for rate limiting and the audit trail",
				},
				&cli.StringFlag{
					Name:  "user-agent",
					Value: "localvault-cli",
					Usage: "Client user agent recorded on the session",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunAuthenticate(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("username"),
					cmd.String("password"),
					cmd.String("ip-address"),
					cmd.String("user-agent"),
				)
			},
		},
		{
			Name:  "refresh",
			Usage: "Exchange a refresh token for a new token pair",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "refresh-token",
					Required: true,
					Usage:    "Refresh token issued at login",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunRefresh(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("refresh-token"),
				)
			},
		},
		{
			Name:  "revoke-session",
			Usage: "Revoke a session",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "session-id",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Session ID",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeSession(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("session-id"),
				)
			},
		},
		{
			Name:  "set-user-status",
			Usage: "Set a user's account status",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "User ID",
				},
				&cli.StringFlag{
					Name:     "status",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "New status (active, inactive, suspended)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunSetUserStatus(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
					cmd.String("status"),
				)
			},
		},
		{
			Name:  "unlock-user",
			Usage: "Clear a user's lockout and reset the failure counter",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "User ID",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunUnlockUser(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
				)
			},
		},
		{
			Name:  "authorize",
			Usage: "Evaluate an access request and print the decision",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Requesting user ID",
				},
				&cli.StringFlag{
					Name:     "session-id",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Session ID",
				},
				&cli.StringFlag{
					Name:     "resource",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Resource being accessed",
				},
				&cli.StringFlag{
					Name:     "action",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Action being performed",
				},
				&cli.StringFlag{
					Name:  "ip-address",
					Value: "127.0.0.1",
					Usage: "Client IP address for constraint checks",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				if err := container.Bootstrap(ctx); err != nil {
					return err
				}

				authorizationUseCase, err := container.AuthorizationUseCase()
				if err != nil {
					return err
				}

				return commands.RunAuthorize(
					ctx,
					authorizationUseCase,
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
					cmd.String("session-id"),
					cmd.String("resource"),
					cmd.String("action"),
					cmd.String("ip-address"),
				)
			},
		},
	}
}
