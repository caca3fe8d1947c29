package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/legacyrp/legacybot/internal/bot"
	"github.com/legacyrp/legacybot/internal/characters"
	"github.com/legacyrp/legacybot/internal/config"
	"github.com/legacyrp/legacybot/internal/perms"
	"github.com/legacyrp/legacybot/internal/records"
)

var (
	configPath string
	debug      bool
)

// NewRootCommand creates the *cobra.Command used as the root command
// for legacybot.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "legacybot",
		Short:         "Discord moderation bot for the Legacy Roleplay FiveM server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Path to the config file.")
	cmd.PersistentFlags().BoolVar(&debug, "debug", debug, "Enable debug logging.")

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	permStore := perms.NewStore(filepath.Join(cfg.DataDir, "permissions.json"), cfg.AdminIDs)

	recordStore, err := records.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not connect to game database: %w", err)
	}
	defer recordStore.Close()

	directoryPath := filepath.Join(cfg.DataDir, "characters.json")
	directory := characters.NewDirectory(directoryPath)
	refresher := characters.NewRefresher(cfg.Characters.SourceURL, directoryPath, cfg.Characters.RefreshInterval, logger)

	b, err := bot.New(cfg, permStore, recordStore, directory, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("config", configPath).Msg("starting legacybot")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return b.Run(ctx)
	})
	group.Go(func() error {
		refresher.Run(ctx)
		return nil
	})
	return group.Wait()
}
