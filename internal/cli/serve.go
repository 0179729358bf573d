package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shapescale/dialbox/internal/config"
	"github.com/shapescale/dialbox/internal/dialpad"
	"github.com/shapescale/dialbox/internal/domain"
	"github.com/shapescale/dialbox/internal/ingest"
	"github.com/shapescale/dialbox/internal/notify"
	"github.com/shapescale/dialbox/internal/store"
	"github.com/shapescale/dialbox/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var listenFlag string
	var verboseFlag bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long:  "Receive Dialpad SMS, call, and voicemail webhooks, store messages, and forward notifications.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listenFlag != "" {
				cfg.Server.Listen = listenFlag
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			log := logrus.New()
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verboseFlag {
				log.SetLevel(logrus.DebugLevel)
			}

			srv := buildServer(cfg, st, log)

			httpServer := &http.Server{
				Addr:              cfg.Server.Listen,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.WithField("listen", cfg.Server.Listen).Info("webhook server started")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down cleanly: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenFlag, "listen", "", "listen address (overrides config)")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	return cmd
}

// buildServer assembles the webhook server from config. Integrations without
// credentials are left nil and disabled.
func buildServer(cfg *config.Config, st store.Store, log *logrus.Logger) *webhook.Server {
	lines := domain.NewLineNames(cfg.Dialpad.LineNames)

	srv := &webhook.Server{
		Ingest: ingest.NewHandler(st, lines),
		Secret: cfg.Server.WebhookSecret,
		Lines:  lines,
		Log:    log,
	}

	if cfg.Hooks.Token != "" {
		srv.Hooks = notify.NewHookForwarder(notify.HookConfig{
			GatewayURL: cfg.Hooks.GatewayURL,
			Path:       cfg.Hooks.Path,
			Token:      cfg.Hooks.Token,
			Name:       cfg.Hooks.Name,
			Channel:    cfg.Hooks.Channel,
			To:         cfg.Hooks.To,
			AgentID:    cfg.Hooks.AgentID,
		})
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.WithError(err).Warn("telegram alerts disabled")
		} else {
			srv.Calls = tg
		}
	}

	if cfg.Dialpad.APIKey != "" {
		srv.Contacts = dialpad.New(cfg.Dialpad.APIKey)
	}

	return srv
}
