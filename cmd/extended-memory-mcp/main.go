// extended-memory-mcp is the stdio entrypoint: a long-lived `serve` loop
// speaking line-delimited JSON-RPC 2.0, plus two maintenance subcommands
// (`stats`, `cleanup-tags`) that talk to the same storage backend directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/extended-memory/mcp-storage/internal/config"
	"github.com/extended-memory/mcp-storage/internal/initservice"
	"github.com/extended-memory/mcp-storage/internal/mcptools"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/rpcio"
	"github.com/extended-memory/mcp-storage/internal/storage/factory"
	"github.com/extended-memory/mcp-storage/internal/summary"
)

var (
	connectionOverride string
	jsonOutput         bool
)

var rootCmd = &cobra.Command{
	Use:   "extended-memory-mcp",
	Short: "extended-memory-mcp - persistent memory for conversational agents",
	Long:  `A JSON-RPC stdio service that lets an agent save and recall context across sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&connectionOverride, "connection-string", "", "Override STORAGE_CONNECTION_STRING")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(serveCmd, statsCmd, cleanupTagsCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stdio JSON-RPC loop (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print storage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(connectionOverride)
		log := config.NewLogger(cfg.LogLevel)
		store, err := factory.New(cmd.Context(), cfg.ConnectionString, factory.Options{
			Logger:         log,
			RedisKeyPrefix: cfg.RedisKeyPrefix,
			RedisTTLHours:  cfg.RedisTTLHours,
		})
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		stats, err := store.GetStorageStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get storage stats: %w", err)
		}
		return printStats(stats)
	},
}

var cleanupTagsCmd = &cobra.Command{
	Use:   "cleanup-tags",
	Short: "Delete tags with no remaining context associations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(connectionOverride)
		log := config.NewLogger(cfg.LogLevel)
		store, err := factory.New(cmd.Context(), cfg.ConnectionString, factory.Options{
			Logger:         log,
			RedisKeyPrefix: cfg.RedisKeyPrefix,
			RedisTTLHours:  cfg.RedisTTLHours,
		})
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		n, err := store.CleanupUnusedTags(cmd.Context())
		if err != nil {
			return fmt.Errorf("cleanup unused tags: %w", err)
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(map[string]int{"removed_tags": n})
		}
		fmt.Printf("Removed %d unused tags.\n", n)
		return nil
	},
}

func printStats(stats memory.StorageStats) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(stats)
	}
	fmt.Print(summary.Stats(stats))
	return nil
}

// serve builds the storage backend and tool-dispatch handler, then blocks
// on the stdio JSON-RPC loop until stdin is closed or a signal arrives.
func serve(ctx context.Context) error {
	cfg := config.Load(connectionOverride)
	log := config.NewLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := factory.New(ctx, cfg.ConnectionString, factory.Options{
		Logger:          log,
		RedisKeyPrefix:  cfg.RedisKeyPrefix,
		RedisTTLHours:   cfg.RedisTTLHours,
		FallbackProject: "general",
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	initSvc := initservice.New(store, initservice.WithLogger(log))
	tools := mcptools.New(store, initSvc,
		mcptools.WithLogger(log),
		mcptools.WithInstructionPath(func() string { return cfg.CustomInstructionPath }),
	)

	log.Info("extended-memory-mcp serving", "connection", cfg.ConnectionString)
	return rpcio.Serve(os.Stdin, os.Stdout, dispatch(ctx, tools), log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
