// Command load-quality loads one CMS hospital quality-rating CSV into the
// database.
//
//	load-quality [flags] <rating_date YYYY-MM-DD> <Hospital_General_Information.csv>
//
// rating_date stamps every row of the snapshot; the file carries no date of
// its own. The file streams in batches inside a single transaction, so a
// failed batch rolls back the entire file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/cli"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/config"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/pipeline"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
)

func main() {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("load-quality", flag.ExitOnError)
	cli.BindFlags(fs, &cfg)
	verbose := fs.Bool("v", false, "enable debug logs")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 2 {
		fatalf("usage: load-quality [flags] <rating_date YYYY-MM-DD> <csv_file>")
	}
	ratingDate, err := time.Parse(schema.DateLayout, fs.Arg(0))
	if err != nil {
		fatalf("invalid rating date %q: expected YYYY-MM-DD", fs.Arg(0))
	}
	path := fs.Arg(1)

	logger, err := cli.NewLogger(*verbose)
	if err != nil {
		fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	flushMetrics := cli.InitMetrics(cfg, "load_quality", logger)
	defer flushMetrics()

	ctx := context.Background()
	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("run failed",
			zap.String("kind", string(pipeline.Classify(err))),
			zap.Error(err))
		os.Exit(1)
	}
	defer store.Close(ctx)

	rows, err := pipeline.LoadQuality(ctx, store, path, ratingDate,
		cfg.BatchSize, clockwork.NewRealClock(), logger)
	if err != nil {
		logger.Error("run failed",
			zap.String("kind", string(pipeline.Classify(err))),
			zap.String("file", path),
			zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("Quality ratings for %d hospitals successfully inserted for date: %s\n",
		rows, ratingDate.Format(schema.DateLayout))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
