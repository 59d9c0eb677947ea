// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authcore/cmd/app/commands"
	"github.com/allisson/authcore/internal/config"
	cryptoService "github.com/allisson/authcore/internal/crypto/service"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "authcore",
		Usage:   "Credential and session management service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
					return commands.RunMigrations(logger, cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "create-master-key",
				Usage: "Generate a new master key for field encryption",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Master key ID (e.g., prod-master-key-2026)",
					},
					&cli.StringFlag{
						Name:  "kms-provider",
						Value: "",
						Usage: "KMS provider for key wrapping (gcpkms, awskms, azurekeyvault, hashivault, localsecrets)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Value: "",
						Usage: "KMS key URI (e.g., base64key://... for localsecrets)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateMasterKey(
						ctx,
						cryptoService.NewKMSService(),
						os.Stdout,
						cmd.String("id"),
						cmd.String("kms-provider"),
						cmd.String("kms-key-uri"),
					)
				},
			},
			{
				Name:  "create-signing-key",
				Usage: "Generate a new token signing key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Signing key ID (e.g., signing-key-2026)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateSigningKey(os.Stdout, cmd.String("id"))
				},
			},
			{
				Name:  "register-subject",
				Usage: "Register a new subject with a credential",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject-ref",
						Aliases:  []string{"r"},
						Required: true,
						Usage:    "External subject reference (username, email or service account name)",
					},
					&cli.StringFlag{
						Name:     "secret",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Plaintext secret, hashed before storage",
					},
					&cli.StringFlag{
						Name:  "roles",
						Usage: "Comma-separated role list (e.g., admin,operator)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRegisterSubject(
						ctx,
						cmd.String("subject-ref"),
						cmd.String("secret"),
						cmd.String("roles"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "clean-revocations",
				Usage: "Remove expired entries from the token revocation index",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanRevocations(ctx, cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
