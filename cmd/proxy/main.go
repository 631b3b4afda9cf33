package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vmanager/internal/catalog"
	"vmanager/internal/config"
	"vmanager/internal/logging"
	"vmanager/internal/proxy"
	"vmanager/internal/storage"
	"vmanager/pkg/sdk"
)

var (
	configDir    string
	historyLimit int
	historyUser  string
)

func loadConfig() (*config.Config, error) {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "vmanager-proxy",
	Short: "Proxy between vmanager front-ends and the server backend",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept front-end channels and relay them to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		closer, err := logging.Init(cfg.Log, "vmanager-proxy")
		if err != nil {
			return err
		}
		defer closer.Close()

		store, err := storage.NewGormStore(cfg.Proxy.DatabasePath)
		if err != nil {
			return fmt.Errorf("could not open journal %s: %w", cfg.Proxy.DatabasePath, err)
		}
		defer store.Close()

		backend := sdk.NewClient(cfg.Proxy.BackendURL, cfg.Proxy.BackendTimeout())
		versions := catalog.New(cfg.Proxy.CatalogURL, cfg.Proxy.CatalogTTL(), cfg.Proxy.BackendTimeout())
		dispatcher := proxy.NewDispatcher(backend, versions, store, cfg.Proxy.BackendTimeout())

		log.Info().
			Str("listen", cfg.Proxy.ListenAddr).
			Str("backend", backend.BaseURL()).
			Str("catalog", cfg.Proxy.CatalogURL).
			Str("journal", cfg.Proxy.DatabasePath).
			Msg("proxy starting")

		if err := proxy.NewServer(dispatcher).Start(cmd.Context(), cfg.Proxy.ListenAddr); err != nil {
			log.Error().Err(err).Msg("proxy stopped")
			return err
		}
		log.Info().Msg("proxy stopped")
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent actions and creation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := storage.NewGormStore(cfg.Proxy.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []storage.Entry
		if historyUser != "" {
			entries, err = store.RecentByUser(cmd.Context(), historyUser, historyLimit)
		} else {
			entries, err = store.Recent(cmd.Context(), historyLimit)
		}
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No history recorded.")
			return nil
		}

		printHistory(os.Stdout, entries)
		return nil
	},
}

func printHistory(out io.Writer, entries []storage.Entry) {
	tw := tablewriter.NewWriter(out)
	tw.SetHeader([]string{"Time", "User", "Command", "Target", "Status", "Detail"})
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)

	for _, e := range entries {
		tw.Append([]string{
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.User,
			e.Command,
			e.Target,
			e.Status,
			e.Detail,
		})
	}
	tw.Render()
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "", "Only show entries for this user")
	rootCmd.AddCommand(serveCmd, historyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
