package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/entitystore"
	"taskboard/internal/gateway"
	"taskboard/internal/logging"
	"taskboard/internal/session"
	"taskboard/internal/store"
)

// app wires the client side: session provider, gateway and entity store.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	creds    *config.CredentialsFile
	sessions *session.Provider
	entities *entitystore.Store
	out      *output
	probe    func(ctx context.Context) error

	closers []func() error
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newApp builds the client. With --local the gateway and authenticator run
// in process against the configured database.
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := &app{
		cfg:   cfg,
		log:   logger,
		creds: config.NewCredentialsFile(cfg.Client.CredentialsPath),
		out:   newOutput(cmd.OutOrStdout(), jsonOutput),
	}

	local, _ := cmd.Flags().GetBool("local")
	var gw gateway.Gateway

	if local {
		db, accounts, err := openBackend(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		a.sessions = session.New(accounts, session.WithLogger(logger), session.WithCredentialStore(a.creds))
		sg, err := gateway.NewStoreGateway(ctx, db, a.sessions, cfg.Server.TaskOrderingEnabled())
		if err != nil {
			a.Close()
			return nil, err
		}
		gw = sg
	} else {
		client := gateway.NewClient(cfg.Client.ServerURL, gateway.WithLogger(logger))
		ac := gateway.NewAuthClient(client)
		a.sessions = session.New(ac, session.WithLogger(logger), session.WithCredentialStore(a.creds))
		hg := gateway.NewHTTPGateway(client, a.sessions)
		a.probe = func(ctx context.Context) error {
			_, err := hg.Probe(ctx)
			return err
		}
		gw = hg
	}

	a.entities = entitystore.New(gw, a.sessions, entitystore.WithLogger(logger))
	a.closers = append([]func() error{a.entities.Close}, a.closers...)
	return a, nil
}

// openBackend opens the database and the account service the server uses.
func openBackend(cfg *config.Config, logger *logrus.Logger) (*store.SQLiteStore, *auth.Service, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, nil, err
	}

	if cfg.Server.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := store.NewSQLiteStore(cfg.Server.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.Server.JWTSecret, cfg.Server.AccessTTL, cfg.Server.RefreshTTL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, auth.NewService(db, issuer, logger), nil
}

// restore signs in from saved credentials.
func (a *app) restore(ctx context.Context) error {
	creds, err := a.creds.Load()
	if err != nil {
		return err
	}
	if creds == nil {
		return fmt.Errorf("%w: run \"taskboard signin\" first", session.ErrNotSignedIn)
	}
	if err := a.sessions.Restore(ctx, creds.RefreshToken); err != nil {
		return fmt.Errorf("%w: run \"taskboard signin\" again", err)
	}

	if a.probe != nil {
		if err := a.probe(ctx); err != nil {
			a.log.WithError(err).Warn("could not read server capabilities, task order stays local")
		}
	}
	return nil
}

// Close releases everything newApp opened.
func (a *app) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withSession runs fn with a restored session.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close")
		}
	}()

	ctx := cmd.Context()
	if err := a.restore(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}
