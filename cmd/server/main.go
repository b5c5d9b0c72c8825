package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"cgm/internal/app"
	"cgm/internal/auth"
	"cgm/internal/config"
	"cgm/internal/db"
)

func main() {
	_ = godotenv.Overload("../.env")
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Overload(".env")
	}

	cliApp := &cli.App{
		Name:   "cgm",
		Usage:  "case management access server",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:      "hash-password",
				Usage:     "print a bcrypt hash for seeding password_hash",
				ArgsUsage: "<password>",
				Action:    hashPassword,
			},
			{
				Name:   "policy",
				Usage:  "print the effective protected paths and operation policies",
				Action: printPolicy,
			},
			{
				Name:  "create-user",
				Usage: "insert a user account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "role", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"CGM_USER_PASSWORD"}},
					&cli.StringSliceFlag{Name: "state", Usage: "assigned case state, repeatable"},
				},
				Action: createUser,
			},
			{
				Name:      "assign-states",
				Usage:     "replace a user's assigned case states",
				ArgsUsage: "<user-id> [state...]",
				Action:    assignStates,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func serve(c *cli.Context) error {
	cfg := config.Load()
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to construct application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Start()
	}()

	select {
	case err := <-errCh:
		application.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Shutdown(shutdownCtx)
	return nil
}

func hashPassword(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		return errors.New("usage: hash-password <password>")
	}
	cfg := config.Load()
	hash, err := auth.NewBcryptVerifier(cfg.BcryptCost).Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hash)
	return nil
}

func printPolicy(c *cli.Context) error {
	cfg := config.Load()
	table, err := app.LoadPolicies(&cfg)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, "protected paths:")
	for _, p := range cfg.ProtectedPaths {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintln(w, "policies:")
	for _, op := range table.Operations() {
		roles, _ := table.Allowed(op)
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, string(r))
		}
		allowed := strings.Join(names, ", ")
		if allowed == "" {
			allowed = "(any session)"
		}
		fmt.Fprintf(w, "  %-14s %s\n", op, allowed)
	}
	return nil
}

func openPool(c *cli.Context) (*db.Pool, config.Config, error) {
	cfg := config.Load()
	pool, err := db.NewPool(c.Context, cfg.DatabaseURL)
	if err != nil {
		return nil, cfg, fmt.Errorf("database: %w", err)
	}
	return pool, cfg, nil
}

func createUser(c *cli.Context) error {
	role := auth.Role(c.String("role"))
	if !auth.IsValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	pool, cfg, err := openPool(c)
	if err != nil {
		return err
	}
	defer pool.Close()

	hash, err := auth.NewBcryptVerifier(cfg.BcryptCost).Hash(c.String("password"))
	if err != nil {
		return err
	}

	user, err := pool.CreateUser(c.Context, db.NewUser{
		Email:          c.String("email"),
		Name:           c.String("name"),
		Role:           string(role),
		PasswordHash:   hash,
		AssignedStates: c.StringSlice("state"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, user.ID)
	return nil
}

func assignStates(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: assign-states <user-id> [state...]")
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	pool, _, err := openPool(c)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := pool.SetAssignedStates(c.Context, id, c.Args().Tail())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %s\n", user.Email, strings.Join(user.AssignedStates, ", "))
	return nil
}
