package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/resume-chat/internal/agent"
	"github.com/comigor/resume-chat/internal/config"
	"github.com/comigor/resume-chat/internal/history"
	"github.com/comigor/resume-chat/internal/llm"
	"github.com/comigor/resume-chat/internal/logger"
	"github.com/comigor/resume-chat/internal/mcpserver"
	"github.com/comigor/resume-chat/internal/resume"
	"github.com/comigor/resume-chat/internal/server"
)

// version is set at build time.
var version = "0.1.0"

type app struct {
	cfg      *config.Config
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:          "resumechat",
		Short:        "Chat backend answering questions about a resume",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a.cfg = cfg
			a.closeLog = logger.Setup(cfg.Log.Level, cfg.Log.File)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeLog()
		},
	}

	root.AddCommand(
		newServeCmd(a),
		newHistoryCmd(a),
		newClearCmd(a),
		newModelsCmd(a),
	)
	return root
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	store, err := history.Open(ctx, cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.L.Error("failed to close history store", "error", err)
		}
	}()

	provider, err := resume.Load(cfg.Resume.File)
	if err != nil {
		return err
	}

	completer := llm.NewChatCompleter(llm.NewClient(cfg.LLM), cfg.LLM)
	chatAgent := agent.New(completer, store, provider, cfg.LLM)
	mcp := mcpserver.New(chatAgent, version)

	logger.L.Info("completion client ready", "model", cfg.LLM.Model, "api_key_loaded", cfg.LLM.APIKey != "")
	if cfg.LLM.APIKey == "" {
		logger.L.Warn("OPENROUTER_API_KEY is not set; /api/chat will fail until it is configured")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.New(chatAgent, cfg.Server, mcpserver.Handler(mcp)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", httpServer.Addr, "origins", cfg.Server.AllowedOrigins)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.L.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.L.Info("server stopped")
	return nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent chat turns, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(cmd.Context(), a.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			turns, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] %s: %s\n", t.CreatedAt.Format(time.RFC3339), t.Role, t.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", agent.DefaultHistoryLimit, "maximum number of turns")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all chat turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(cmd.Context(), a.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chat history cleared (%d turns removed)\n", n)
			return nil
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List free models offered by the completion service",
		Long:  "List models whose id carries the \":free\" tag. Models that are free only by\n" +
			"zero prompt pricing are not listed: the models endpoint client does not expose pricing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			ids, err := llm.ListFreeModels(ctx, llm.NewClient(a.cfg.LLM))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No free models found")
				return nil
			}
			fmt.Fprintf(out, "Found %d free models:\n", len(ids))
			for i, id := range ids {
				fmt.Fprintf(out, "  %d. %s\n", i+1, id)
			}
			return nil
		},
	}
}
