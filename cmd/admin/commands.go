package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/app/services"
	"github.com/yigit/coursemarket/internal/bootstrap"
	"github.com/yigit/coursemarket/internal/config"
	"github.com/yigit/coursemarket/internal/pkg/auth"
	"github.com/yigit/coursemarket/internal/pkg/email"
	"github.com/yigit/coursemarket/internal/seed"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password must not be empty")
)

// environment is what the commands need from the outside world
type environment struct {
	loadConfig  func(path string) (*config.Config, zerolog.Logger, error)
	openStorage func(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*bootstrap.Storage, error)
	stdin       int
}

func defaultEnvironment() *environment {
	return &environment{
		loadConfig:  bootstrap.LoadConfigAndSetupLogger,
		openStorage: bootstrap.SetupStorage,
		stdin:       int(os.Stdin.Fd()),
	}
}

func newApp(env *environment) *cli.App {
	return &cli.App{
		Name:  "coursemarket-admin",
		Usage: "maintenance tasks for the course marketplace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply Postgres migrations or create MongoDB indexes",
				Action: env.migrate,
			},
			{
				Name:   "seed",
				Usage:  "create the demo teacher and course",
				Action: env.seed,
			},
			{
				Name:  "reset-password",
				Usage: "set a user's password; the password is prompted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "the user's email", Required: true},
				},
				Action: env.resetPassword,
			},
			{
				Name:  "create-user",
				Usage: "create an account; the password is prompted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "type", Usage: "student or teacher", Value: "student"},
				},
				Action: env.createUser,
			},
		},
	}
}

// withStorage opens storage with demo seeding off and closes it after fn
func (env *environment) withStorage(c *cli.Context, fn func(cfg *config.Config, storage *bootstrap.Storage, lgr zerolog.Logger) error) error {
	cfg, lgr, err := env.loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	cfg.Database.SeedDemoData = false

	storage, err := env.openStorage(c.Context, cfg, lgr)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(context.Background()); err != nil {
			lgr.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	return fn(cfg, storage, lgr)
}

func (env *environment) migrate(c *cli.Context) error {
	return env.withStorage(c, func(cfg *config.Config, storage *bootstrap.Storage, _ zerolog.Logger) error {
		// Opening the storage applies migrations and indexes
		fmt.Fprintf(c.App.Writer, "%s storage is up to date\n", storage.Driver)
		return nil
	})
}

func (env *environment) seed(c *cli.Context) error {
	return env.withStorage(c, func(_ *config.Config, storage *bootstrap.Storage, lgr zerolog.Logger) error {
		if err := seed.CreateDemoData(c.Context, storage.Repos, lgr); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "demo teacher %s is ready\n", seed.DemoTeacherEmail)
		return nil
	})
}

func (env *environment) promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter password:")
	pwd, err := readPasswordFunc(env.stdin)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func newAuthService(cfg *config.Config, storage *bootstrap.Storage, lgr zerolog.Logger) *services.AuthService {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenIssuer: cfg.JWT.Issuer,
	})
	// Reset codes are never sent from here
	return services.NewAuthService(storage.Repos.Users, jwtService, auth.NewMemoryDenyList(), email.NewLogMailer(lgr), 0, lgr)
}

func (env *environment) resetPassword(c *cli.Context) error {
	pwd, err := env.promptPassword(c.App.Writer)
	if err != nil {
		return err
	}

	return env.withStorage(c, func(cfg *config.Config, storage *bootstrap.Storage, lgr zerolog.Logger) error {
		if err := newAuthService(cfg, storage, lgr).SetPassword(c.Context, c.String("email"), pwd); err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "password of %s updated\n", services.NormalizeEmail(c.String("email")))
		return nil
	})
}

func (env *environment) createUser(c *cli.Context) error {
	pwd, err := env.promptPassword(c.App.Writer)
	if err != nil {
		return err
	}

	return env.withStorage(c, func(cfg *config.Config, storage *bootstrap.Storage, lgr zerolog.Logger) error {
		resp, err := newAuthService(cfg, storage, lgr).Register(c.Context, &dto.RegisterRequest{
			Username:    c.String("username"),
			Email:       c.String("email"),
			Password:    pwd,
			AccountType: strings.ToLower(c.String("type")),
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "created %s %s (%s)\n", resp.User.AccountType, resp.User.Email, resp.User.ID)
		return nil
	})
}
