package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"facewatch-go/internal/config"
	"facewatch-go/internal/logger"
	"facewatch-go/internal/util/timezone"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X facewatch-go/internal/cli.Version=..."
var Version = "dev"

var (
	configPath string
	envFile    string

	// cfg is loaded by the root command before any subcommand runs
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "facewatch",
	Short:         "Identify known faces in a live webcam stream",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		closer, err := logger.Init(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logCloser = closer

		timezone.Initialize(cfg.Server.Timezone)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file loaded before the config")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM arrives
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
