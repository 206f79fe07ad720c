package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"novafront/config"
	"novafront/internal/app"
	"novafront/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if listen != "" {
				settings.Server.Listen = listen
			}

			closer, err := logging.Setup(settings.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			a, err := app.New(settings, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go reloadOnHangup(sigCtx, hup, ctx.manager(), a)

			return serve(sigCtx, a)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override the listen address")
	return cmd
}

func serve(ctx context.Context, a *app.App) error {
	srv := &http.Server{
		Addr:              a.Settings.Server.Listen,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening (%s)", a)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// reloadOnHangup re-reads the settings file on every signal from hup.
func reloadOnHangup(ctx context.Context, hup <-chan os.Signal, manager *config.Manager, a *app.App) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}
		settings, err := manager.Load()
		if err != nil {
			log.Printf("[server] reload failed: %v", err)
			continue
		}
		if _, err := a.Reload(settings); err != nil {
			log.Printf("[server] reload rejected: %v", err)
		}
	}
}
