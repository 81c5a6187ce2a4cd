package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/handlers"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the taskboard API server",
		Long: `Run the taskboard REST API backed by SQLite.

Examples:
  TASKBOARD_JWT_SECRET=change-me taskboard serve
  taskboard serve --addr :9090
`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	db, accounts, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	taskOrdering := cfg.Server.TaskOrderingEnabled()
	if taskOrdering {
		supported, err := db.HasTaskPositions(cmd.Context())
		if err != nil {
			return err
		}
		if !supported {
			logger.Warn("database has no task positions, task ordering disabled")
			taskOrdering = false
		}
	}

	h := handlers.New(db, accounts, logger, taskOrdering)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":          cfg.Server.Addr,
			"db_path":       cfg.Server.DBPath,
			"task_ordering": taskOrdering,
		}).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
