// Command benchmark measures member resolution against a live Essbase server,
// comparing sequential lookups with the concurrent resolver.
//
// Usage:
//
//	ESSBASE_PASSWORD=... go run ./cmd/benchmark --url https://essbase.example.com \
//	    --user admin --app Sample --db Basic --names Sales,Cola,"New York",Jan
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olgasafonova/essbase-mcp-server/internal/essbase"
	"github.com/olgasafonova/essbase-mcp-server/internal/outline"
)

type benchOptions struct {
	db          essbase.Database
	names       []string
	concurrency int
	rounds      int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:          "benchmark",
		Short:        "Measure Essbase member resolution performance",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.db.Password = os.Getenv("ESSBASE_PASSWORD")
			if err := essbase.ValidateDatabase(opts.db); err != nil {
				return err
			}
			if err := essbase.ValidateEntityNames(opts.names); err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.db.URL, "url", "", "Essbase server URL")
	f.StringVar(&opts.db.User, "user", "", "Essbase user (password from ESSBASE_PASSWORD)")
	f.StringVar(&opts.db.App, "app", "", "application name")
	f.StringVar(&opts.db.DB, "db", "", "database name")
	f.StringSliceVar(&opts.names, "names", nil, "comma-separated member names to resolve")
	f.IntVar(&opts.concurrency, "concurrency", outline.DefaultConcurrency, "parallel lookups for the concurrent run")
	f.IntVar(&opts.rounds, "rounds", 3, "rounds per mode")
	return cmd
}

func runBenchmark(ctx context.Context, opts benchOptions) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := essbase.NewClient(essbase.WithLogger(logger))
	defer client.Close()

	fmt.Println("Essbase MCP Server - Member Resolution Performance")
	fmt.Println("==================================================")
	fmt.Printf("Database: %s.%s, %d names, %d rounds\n\n", opts.db.App, opts.db.DB, len(opts.names), opts.rounds)

	lookup := func(ctx context.Context, name string) ([]outline.Candidate, error) {
		return client.SearchOutline(ctx, opts.db, name)
	}

	fmt.Println("1. Sequential resolution:")
	sequential := measure(opts.rounds, func() []outline.Resolution {
		return outline.Resolve(ctx, opts.names, lookup)
	})

	fmt.Printf("\n2. Concurrent resolution (concurrency %d):\n", opts.concurrency)
	resolver := outline.NewResolver(lookup,
		outline.WithConcurrency(opts.concurrency),
		outline.WithLogger(logger),
	)
	concurrent := measure(opts.rounds, func() []outline.Resolution {
		return resolver.ResolveMembers(ctx, opts.names)
	})

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Sequential average: %v\n", sequential)
	fmt.Printf("Concurrent average: %v\n", concurrent)
	if concurrent > 0 {
		fmt.Printf("Speedup: %.1fx\n", float64(sequential)/float64(concurrent))
	}
	return nil
}

// measure runs fn rounds times, prints each round and returns the average
func measure(rounds int, fn func() []outline.Resolution) time.Duration {
	if rounds < 1 {
		rounds = 1
	}
	var total time.Duration
	for i := 0; i < rounds; i++ {
		start := time.Now()
		results := fn()
		elapsed := time.Since(start)
		total += elapsed

		resolved := 0
		for _, r := range results {
			if r.Member != nil {
				resolved++
			}
		}
		fmt.Printf("   Round %d: %v (%d/%d resolved)\n", i+1, elapsed, resolved, len(results))
	}
	return total / time.Duration(rounds)
}
