// Command atelier runs the dress shop back-office server and its
// small administrative tooling.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/moyshiginzburg/atelier/apiclients/receipts"
	"github.com/moyshiginzburg/atelier/config"
	"github.com/moyshiginzburg/atelier/db"
	"github.com/moyshiginzburg/atelier/internal/mirror"
	"github.com/moyshiginzburg/atelier/internal/notify"
	"github.com/moyshiginzburg/atelier/internal/token"
	"github.com/moyshiginzburg/atelier/web"
)

func main() {
	// A .env file may carry secret overrides such as JWT_SECRET.
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.yaml",
		Usage:   "path to the configuration file",
	}

	root := &cli.Command{
		Name:  "atelier",
		Usage: "dress shop back-office server",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the API server",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, logger, c.String("config"))
				},
			},
			{
				Name:      "adduser",
				Usage:     "Create a back-office login user",
				ArgsUsage: "<username> <password>",
				Flags:     []cli.Flag{configFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 2 {
						return errors.New("adduser needs a username and a password")
					}
					return addUser(ctx, logger, c.String("config"),
						c.Args().Get(0), c.Args().Get(1))
				},
			},
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		logger.Fatal(err)
	}
}

// serve runs the API server together with its side-effect components:
// the uploads mirror watcher and the daily reminder job.
func serve(ctx context.Context, logger *log.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	database, err := db.NewConnection(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("database setup error: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	notifier := notify.New(cfg.Notify.WebhookURL, logger)

	var receiptsClient *receipts.Client
	receiptsClient, err = receipts.NewClient(ctx, cfg, logger)
	if err != nil {
		if !errors.Is(err, receipts.ErrDisabled) {
			return fmt.Errorf("receipts client error: %w", err)
		}
		logger.Info("receipt extraction disabled")
		receiptsClient = nil
	}

	webApp, err := web.New(logger, cfg, database,
		token.NewSigner(cfg.Auth.JWTSecret), notifier, receiptsClient)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Uploads.MirrorDir != "" {
		m, err := mirror.New(cfg.Uploads.Dir, cfg.Uploads.MirrorDir, logger)
		if err != nil {
			return fmt.Errorf("mirror setup error: %w", err)
		}
		if err := m.Sync(); err != nil {
			return fmt.Errorf("mirror startup sync error: %w", err)
		}
		g.Go(func() error {
			err := m.Watch(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if cfg.Notify.WebhookURL != "" {
		reminder, err := notify.NewReminder(cfg.Notify.ReminderSchedule, notifier, database)
		if err != nil {
			return fmt.Errorf("reminder setup error: %w", err)
		}
		reminder.Start()
		defer reminder.Stop()
	}

	g.Go(func() error {
		err := webApp.StartServer()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return webApp.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// addUser creates a login user with a bcrypt password hash.
func addUser(ctx context.Context, logger *log.Logger, configPath, username, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	database, err := db.NewConnection(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("database setup error: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}
	id, err := database.UserCreate(ctx, username, string(hash))
	if err != nil {
		if db.IsConstraintViolation(err) {
			return fmt.Errorf("user %q already exists", username)
		}
		return err
	}
	logger.Info("user created", "id", id, "username", username)
	return nil
}
