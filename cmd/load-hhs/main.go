// Command load-hhs loads one weekly HHS hospital-capacity CSV into the
// database.
//
//	load-hhs [flags] <yyyy-mm-dd-hhs-data.csv>
//
// The file's week is taken from the first ten characters of the argument.
// One transaction spans the whole file; on any failure nothing is committed
// and the process exits non-zero.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/cli"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/config"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/pipeline"
)

func main() {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("load-hhs", flag.ExitOnError)
	cli.BindFlags(fs, &cfg)
	verbose := fs.Bool("v", false, "enable debug logs")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fatalf("usage: load-hhs [flags] <yyyy-mm-dd-hhs-data.csv>")
	}
	path := fs.Arg(0)

	logger, err := cli.NewLogger(*verbose)
	if err != nil {
		fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	flushMetrics := cli.InitMetrics(cfg, "load_hhs", logger)
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

	res, err := pipeline.LoadHHS(ctx, store, path, logger)
	if err != nil {
		logger.Error("run failed",
			zap.String("kind", string(pipeline.Classify(err))),
			zap.String("file", path),
			zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("Data on %d unique hospitals successfully inserted for week: %s\n",
		res.Hospitals, weekID(path))
}

// weekID is the first ten characters of the file argument, the yyyy-mm-dd
// prefix of the conventional file naming.
func weekID(arg string) string {
	if len(arg) > 10 {
		return arg[:10]
	}
	return arg
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
