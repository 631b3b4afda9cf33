package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"

	"vmanager/internal/config"
	"vmanager/internal/logging"
)

var (
	Cfg       *config.Config
	ProxyURL  string
	UserName  string
	ConfigDir string

	logCloser io.Closer
)

var RootCmd = &cobra.Command{
	Use:   "vmanager",
	Short: "Manage game servers through the vmanager proxy",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunDashboard(cmd.Context())
	},
}

// setup loads the configuration and starts file logging. Completion callbacks
// call it themselves because cobra runs no hooks for them.
func setup() error {
	dir := ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	Cfg = cfg

	// The terminal belongs to the UI; logs only go to file.
	logCfg := cfg.Log
	logCfg.Console = false
	if logCloser, err = logging.Init(logCfg, "vmanager"); err != nil {
		return err
	}

	if ProxyURL == "" {
		ProxyURL = cfg.Frontend.ProxyURL
	}
	if UserName == "" {
		UserName = currentUser()
	}
	return nil
}

func Execute() {
	RootCmd.PersistentFlags().StringVar(&ProxyURL, "proxy", "", "WebSocket URL of the vmanager proxy (defaults to the configured proxy_url)")
	RootCmd.PersistentFlags().StringVar(&UserName, "user", "", "User identity presented to the proxy (defaults to the OS user)")
	RootCmd.PersistentFlags().StringVar(&ConfigDir, "config-dir", "", "Configuration directory")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
	err := RootCmd.ExecuteContext(ctx)
	stop()
	exitOnError(err)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "player"
}
