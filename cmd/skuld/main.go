// Package main provides the Skuld CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skuld-db/skuld/pkg/config"
	"github.com/skuld-db/skuld/pkg/graph"
	"github.com/skuld-db/skuld/pkg/ground"
	"github.com/skuld-db/skuld/pkg/ingest"
	"github.com/skuld-db/skuld/pkg/server"
	"github.com/skuld-db/skuld/pkg/skuld"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skuld",
		Short: "Skuld - Deterministic grounded graph database",
		Long: `Skuld is an embeddable graph database that answers every query with
evidence. Signals accumulate into a weighted directed graph; queries return
grounded results with integer confidence scores and the evidence path that
supports them, or an explicit unknown.

Features:
  • Deterministic traversals (same graph, same answer, always)
  • Grounded results with evidence paths and confidence scores
  • Canonical byte-identical exports
  • In-memory or persistent (Badger) storage`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (implies badger backend)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Skuld v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Skuld HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("http-port", 7400, "HTTP API port")
	serveCmd.Flags().String("auth-token", "", "Bearer token for API auth (empty disables)")
	rootCmd.AddCommand(serveCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest signals from a JSON file ('-' for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	rootCmd.AddCommand(ingestCmd)

	queryCmd := &cobra.Command{
		Use:   "query <kind> [args...]",
		Short: "Run a grounded query",
		Long: `Run a grounded query against the database.

Kinds:
  lookup <entity>
  traverse <start> <depth>
  traverse-filtered <start> <depth> <minWeight>
  traverse-dfs <start> <depth>
  strongest-path <start> <end>
  intersect <node> [node...]
  related <start> <depth>`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}
	rootCmd.AddCommand(queryCmd)

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the graph in canonical form ('-' for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().Bool("json", false, "Export as JSON instead of canonical binary")
	rootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the graph from a canonical export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	rootCmd.AddCommand(importCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics and stage",
		RunE:  runStats,
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration from the persistent flags,
// the optional YAML file, and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("SKULD_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Storage.Backend = config.BackendBadger
		cfg.Storage.DataDir = dataDir
	}
	return cfg, nil
}

func openDB(cmd *cobra.Command) (*skuld.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == config.BackendBadger {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return skuld.Open(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("http-port"); cmd.Flags().Changed("http-port") {
		cfg.Server.Port = port
	}
	if token, _ := cmd.Flags().GetString("auth-token"); token != "" {
		cfg.Server.AuthToken = token
	}

	fmt.Printf("Starting Skuld v%s\n", version)
	fmt.Printf("  Backend:  %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == config.BackendBadger {
		fmt.Printf("  Data dir: %s\n", cfg.Storage.DataDir)
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := skuld.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	serverConfig := server.DefaultConfig()
	serverConfig.Address = cfg.Server.Address
	serverConfig.Port = cfg.Server.Port
	serverConfig.AuthToken = cfg.Server.AuthToken

	httpServer, err := server.New(db, serverConfig)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	fmt.Printf("  HTTP API: http://%s\n", httpServer.Addr())
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Stop(ctx)
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	var signals []ingest.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return fmt.Errorf("parsing signals: %w", err)
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Ingest(cmd.Context(), signals)
	if err != nil {
		return fmt.Errorf("after applying %d signals: %w", len(results), err)
	}
	fmt.Printf("Applied %d signals\n", len(results))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	q, err := parseQuery(args)
	if err != nil {
		return err
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// parseQuery builds a query from CLI arguments.
func parseQuery(args []string) (ground.Query, error) {
	kind := args[0]
	rest := args[1:]

	u64 := func(i int) (uint64, error) {
		if i >= len(rest) {
			return 0, fmt.Errorf("%s: missing argument %d", kind, i+1)
		}
		return strconv.ParseUint(rest[i], 10, 64)
	}
	num := func(i int) (int, error) {
		if i >= len(rest) {
			return 0, fmt.Errorf("%s: missing argument %d", kind, i+1)
		}
		return strconv.Atoi(rest[i])
	}

	switch kind {
	case "lookup":
		entity, err := u64(0)
		if err != nil {
			return ground.Query{}, err
		}
		return ground.Lookup(graph.EntityID(entity)), nil

	case "traverse", "traverse-dfs", "related":
		start, err := u64(0)
		if err != nil {
			return ground.Query{}, err
		}
		depth, err := num(1)
		if err != nil {
			return ground.Query{}, err
		}
		switch kind {
		case "traverse":
			return ground.Traverse(graph.NodeID(start), depth), nil
		case "traverse-dfs":
			return ground.TraverseDFS(graph.NodeID(start), depth), nil
		default:
			return ground.Related(graph.NodeID(start), depth), nil
		}

	case "traverse-filtered":
		start, err := u64(0)
		if err != nil {
			return ground.Query{}, err
		}
		depth, err := num(1)
		if err != nil {
			return ground.Query{}, err
		}
		minWeight, err := num(2)
		if err != nil {
			return ground.Query{}, err
		}
		return ground.TraverseFiltered(graph.NodeID(start), depth, graph.EdgeWeight(minWeight)), nil

	case "strongest-path":
		start, err := u64(0)
		if err != nil {
			return ground.Query{}, err
		}
		end, err := u64(1)
		if err != nil {
			return ground.Query{}, err
		}
		return ground.StrongestPath(graph.NodeID(start), graph.NodeID(end)), nil

	case "intersect":
		if len(rest) == 0 {
			return ground.Query{}, fmt.Errorf("intersect: at least one node required")
		}
		nodes := make([]graph.NodeID, 0, len(rest))
		for _, arg := range rest {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return ground.Query{}, fmt.Errorf("intersect: bad node id %q", arg)
			}
			nodes = append(nodes, graph.NodeID(id))
		}
		return ground.Intersect(nodes), nil

	default:
		return ground.Query{}, fmt.Errorf("unknown query kind: %q", kind)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var data []byte
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err = db.ExportJSON()
	} else {
		data, err = db.ExportCanonical()
	}
	if err != nil {
		return err
	}
	return writeOutput(args[0], data)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ImportCanonical(data); err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	stats := db.Stats()
	fmt.Printf("Imported %d nodes, %d edges\n", stats.Nodes, stats.Edges)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	out, err := db.Stage().Render()
	if err != nil {
		return err
	}
	fmt.Print(out)

	stats := db.Stats()
	fmt.Printf("nodeCacheHitRate: %d%%\n", stats.NodeCache.HitRatePercent)
	fmt.Printf("traversalCacheHitRate: %d%%\n", stats.TraversalCache.HitRatePercent)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
