// Package main is nordgraphd: a small cobra CLI that boots a space,
// opens storage, and runs ad hoc plans against it — illustrative only
// (§1 puts the network/session front-end and query-text parsing out
// of scope), grounded on the teacher's cmd/nornicdb/main.go command
// layout (root command + verb subcommands, flags read with
// cmd.Flags().Get*, os.MkdirAll before opening the database).
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/config"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/planner"
	"github.com/orneryd/nordgraph/internal/query"
	"github.com/orneryd/nordgraph/internal/value"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nordgraphd",
		Short: "nordgraph - an embeddable property-graph query engine",
		Long: `nordgraphd is a command-line front end over the nordgraph storage
and execution engine. It does not speak a query language of its own:
query-text parsing is explicitly out of scope for the engine, so this
CLI builds small logical plans directly from flags instead of parsing
a MATCH/Cypher-style string.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nordgraphd v%s\n", version)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Open (creating if needed) a space's storage and register its catalog",
		RunE:  runInit,
	}
	addStorageFlags(initCmd)
	initCmd.Flags().String("space", "default", "space name to create")
	rootCmd.AddCommand(initCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a full scan plan (optionally limited) against a tag or edge type",
		RunE:  runScan,
	}
	addStorageFlags(scanCmd)
	scanCmd.Flags().String("space", "default", "space to query")
	scanCmd.Flags().String("tag", "", "vertex tag to scan (mutually exclusive with --edge-type)")
	scanCmd.Flags().String("edge-type", "", "edge type to scan (mutually exclusive with --tag)")
	scanCmd.Flags().Int64("limit", 0, "cap the number of rows returned (0 = unlimited)")
	rootCmd.AddCommand(scanCmd)

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap <schema.yaml>",
		Short: "Create every space/tag/edge-type/index a YAML schema file declares",
		Args:  cobra.ExactArgs(1),
		RunE:  runBootstrap,
	}
	rootCmd.AddCommand(bootstrapCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Print the operator-tree Prometheus metrics gathered so far in this process",
		RunE:  runMetrics,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", "", "storage engine: memory, badger, or bbolt (default from NORDGRAPH_STORAGE_ENGINE)")
	cmd.Flags().String("data-dir", "", "data directory (default from NORDGRAPH_STORAGE_DATA_DIR)")
	cmd.Flags().String("wal-dir", "", "WAL directory; empty disables the WAL (default from NORDGRAPH_STORAGE_WAL_DIR)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.LoadFromEnv()
	if v, _ := cmd.Flags().GetString("engine"); v != "" {
		cfg.Storage.Engine = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("wal-dir"); v != "" {
		cfg.Storage.WALDir = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	space, _ := cmd.Flags().GetString("space")

	if cfg.Storage.DataDir != "" {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	log := newLogger(cfg)
	cat := catalog.New(log)
	if _, err := cat.CreateSpace(catalog.Space{Name: space}); err != nil {
		return fmt.Errorf("creating space %q: %w", space, err)
	}

	eng, err := config.OpenStorage(cfg, cat, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer eng.Close()

	fmt.Printf("space %q ready: engine=%s data-dir=%s wal-dir=%s\n",
		space, cfg.Storage.Engine, cfg.Storage.DataDir, cfg.Storage.WALDir)
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()
	log := newLogger(cfg)
	cat := catalog.New(log)

	sf, err := catalog.LoadSchemaFile(args[0])
	if err != nil {
		return fmt.Errorf("loading schema file: %w", err)
	}
	if err := sf.Apply(cat); err != nil {
		return fmt.Errorf("applying schema file: %w", err)
	}

	for _, s := range cat.ListSpaces() {
		fmt.Printf("space %q bootstrapped\n", s.Name)
	}
	return nil
}

// runMetrics dumps exec's Prometheus registry in the text exposition
// format without starting a server — §1 keeps the network front-end
// out of scope, so this is a one-shot CLI snapshot rather than a
// long-running /metrics endpoint.
func runMetrics(cmd *cobra.Command, args []string) error {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exec.Handler().ServeHTTP(rec, req)
	_, err := fmt.Fprint(os.Stdout, rec.Body.String())
	return err
}

// scanPlanBuilder satisfies query.PlanBuilder without parsing the
// query string at all: it builds a fixed Scan (optionally capped by a
// Limit) plan from the flags the scan subcommand read up front. This
// is the concrete stand-in for the "PlanBuilder is out of scope"
// boundary internal/query documents — a real front end would parse
// queryString into the same planner.PlanNode shape this CLI builds by
// hand.
type scanPlanBuilder struct {
	target string
	isEdge bool
	limit  int64
}

func (b *scanPlanBuilder) Build(ctx context.Context, space, queryString string, params map[string]value.Value) (*planner.OptContext, error) {
	scan := &planner.PlanNode{ID: 0, Kind: planner.KindScan, Scan: &planner.ScanPayload{Space: space, Target: b.target, IsEdge: b.isEdge}}
	if b.limit <= 0 {
		return planner.NewOptContext(nil, space, scan), nil
	}
	limit := &planner.PlanNode{ID: 1, Kind: planner.KindLimit, Inputs: []planner.NodeID{0}, Limit: &planner.LimitPayload{Count: b.limit}}
	return planner.NewOptContext(nil, space, limit, scan), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	space, _ := cmd.Flags().GetString("space")
	tag, _ := cmd.Flags().GetString("tag")
	edgeType, _ := cmd.Flags().GetString("edge-type")
	limit, _ := cmd.Flags().GetInt64("limit")
	if tag != "" && edgeType != "" {
		return fmt.Errorf("--tag and --edge-type are mutually exclusive")
	}

	log := newLogger(cfg)
	cat := catalog.New(log)
	if _, err := cat.CreateSpace(catalog.Space{Name: space}); err != nil {
		return fmt.Errorf("creating space %q: %w", space, err)
	}

	eng, err := config.OpenStorage(cfg, cat, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer eng.Close()

	builder := &scanPlanBuilder{target: tag, isEdge: edgeType != "", limit: limit}
	if edgeType != "" {
		builder.target = edgeType
	}

	qe := query.NewEngine(eng, cat, builder)
	res, err := qe.Execute(context.Background(), space, "", nil)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("%s: %s", res.Error.Code, res.Error.Message)
	}

	fmt.Println(strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	fmt.Fprintf(os.Stderr, "%d row(s) in %dms\n", len(res.Rows), res.ExecutionTimeMs)
	return nil
}
