package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacesedan/myriadflow/config"
	"github.com/spacesedan/myriadflow/internal/app"
	"github.com/spacesedan/myriadflow/internal/logging"
	"github.com/spacesedan/myriadflow/internal/processing"
)

var (
	env     string
	timeout time.Duration
	service *app.App
)

var rootCmd = &cobra.Command{
	Use:           "tagctl",
	Short:         "Manual tag resolution and ingestion",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv(env)
		cfg := config.Load()
		logging.InitLogger(cfg.LogLevel)

		var err error
		service, err = app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		service.Start(cmd.Context())
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <keyword>",
	Short: "Resolve a keyword to a tag, searching the platforms when it is new",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		tag, err := service.Resolver.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		if tag == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "null")
			return nil
		}
		return printJSON(cmd, tag)
	},
}

var ingestCmd = &cobra.Command{
	Use:       "ingest <reddit|twitter|facebook>",
	Short:     "Run one ingestion tick for a platform",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"reddit", "twitter", "facebook"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var run func(context.Context) (processing.TickStats, error)
		switch args[0] {
		case "reddit":
			run = service.Orchestrator.RunReddit
		case "twitter":
			run = service.Orchestrator.RunTwitter
		case "facebook":
			run = service.Orchestrator.RunFacebook
		default:
			return fmt.Errorf("unknown platform %q", args[0])
		}

		stats, err := run(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Bind wallet addresses to stored posts that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		n, err := service.Binder.Repair(ctx, limit)
		fmt.Fprintf(cmd.OutOrStdout(), "bound %d posts\n", n)
		return err
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "dev", "environment file to load from config/envs")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall command timeout")
	repairCmd.Flags().Int("limit", 100, "maximum number of posts to bind")

	rootCmd.AddCommand(resolveCmd, ingestCmd, repairCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		service.Shutdown(ctx)
		cancel()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
