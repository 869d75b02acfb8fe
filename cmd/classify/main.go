// Command classify labels image files as AI generated or original.
//
//	classify [-workers N] [-config path] <file|dir>...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/ai-check/internal/classifier"
	"github.com/example/ai-check/internal/config"
	"github.com/example/ai-check/internal/detector"
	"github.com/example/ai-check/internal/fusion"
	"github.com/example/ai-check/internal/logging"
	"github.com/example/ai-check/internal/usecase"
)

func main() {
	workers := flag.Int("workers", runtime.NumCPU(), "number of images classified concurrently")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: classify [-workers N] [-config path] <file|dir>...")
		os.Exit(2)
	}

	cfg, err := config.LoadModel(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	paths, err := collect(flag.Args())
	if err != nil {
		logger.Fatal("failed to collect inputs", zap.Error(err))
	}

	clf := classifier.Load(classifier.OptionsFromConfig(cfg.Classifier), logger)
	defer clf.Close() //nolint:errcheck

	det := detector.New(clf, logger)
	results := classifyAll(context.Background(), det, paths, *workers)
	if failed := report(os.Stdout, results); failed > 0 {
		os.Exit(1)
	}
}

type fileClassifier interface {
	ClassifyFile(ctx context.Context, path string) (fusion.Verdict, error)
}

type result struct {
	path    string
	verdict fusion.Verdict
	err     error
}

// classifyAll runs at most workers classifications at a time. Per-file
// failures are recorded in the result rather than cancelling the batch.
func classifyAll(ctx context.Context, det fileClassifier, paths []string, workers int) []result {
	if workers < 1 {
		workers = 1
	}
	results := make([]result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			verdict, err := det.ClassifyFile(ctx, path)
			results[i] = result{path: path, verdict: verdict, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func report(w io.Writer, results []result) int {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "%s\terror: %v\n", r.path, r.err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", r.path, r.verdict)
	}
	return failed
}

// collect expands directories into the accepted image files they contain,
// sorted by path. Explicit file arguments are kept as given.
func collect(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && usecase.AllowedFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
