package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"groupchat/internal/account"
	"groupchat/internal/api"
	"groupchat/internal/config"
	"groupchat/internal/logging"
	"groupchat/internal/session"
)

// app holds the client components every command works with.
type app struct {
	cfg      config.ClientConfig
	log      *zap.Logger
	sessions *session.Store
	client   *api.Client
	accounts *account.Service
}

var (
	current *app

	baseURLFlag string
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "chatcli",
	Short:         "Terminal client for the group chat service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			_ = current.log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "chat service URL (overrides CHAT_BASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

func newApp() (*app, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}

	log, err := logging.NewConsole(cfg.LogDebug)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	statePath := cfg.StateFile
	if statePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		statePath = filepath.Join(dir, "groupchat", "session.json")
	}
	kv, err := session.OpenFileKV(statePath)
	if kv == nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	if err != nil {
		// The store is still usable; Restore below treats it as anonymous.
		log.Warn("session file unreadable, starting signed out", zap.String("path", statePath), zap.Error(err))
	}

	sessions := session.New(kv, log)
	sessions.Restore()

	client := api.New(cfg.BaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokens(sessions),
		api.WithLogger(log),
	)
	return &app{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		client:   client,
		accounts: account.New(client, sessions, log),
	}, nil
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, paint(colorError, err.Error()))
		stop()
		os.Exit(1)
	}
}
