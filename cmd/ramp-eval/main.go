package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	segmetrics "github.com/jamesainslie/go-segmetrics"
	"github.com/jamesainslie/go-segmetrics/inference"
	"github.com/jamesainslie/go-segmetrics/internal/eval"
	"github.com/jamesainslie/go-segmetrics/metric"
)

// errUsage marks a bad command line.
var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		// Usage already printed by the flag set.
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and evaluates. Deferred cleanup, such as closing the
// model pool, runs before it returns.
func run(args []string) error {
	fs := flag.NewFlagSet("ramp-eval", flag.ContinueOnError)
	var (
		dataDir    = fs.String("data", "", "Dataset directory with truth/ and pred/ or chips/ (required)")
		configPath = fs.String("config", "", "Path to TOML metrics config")
		metrics    = fs.String("metrics", "", "Comma-separated metric names (default from config or inputs)")
		encoding   = fs.String("encoding", "sparse", "Label encoding fed to metrics: sparse or onehot")
		modelPath  = fs.String("model", "", "Path to ONNX segmentation model; scores chips/ instead of reading pred/")
		inputName  = fs.String("input", "", "Model input name (default: first input)")
		outputName = fs.String("output", "", "Model output name (default: first output)")
		ortLib     = fs.String("ort-lib", "", "Path to the onnxruntime shared library")
		lossName   = fs.String("loss", "", "Loss to track next to the metrics (requires -model)")
		workers    = fs.Int("workers", 0, "Concurrent samples (default GOMAXPROCS)")
		sweep      = fs.Bool("sweep", false, "Run threshold sweep for the configured class (requires -model)")
		sweepMin   = fs.Float64("sweep-min", 0.1, "Sweep minimum threshold")
		sweepMax   = fs.Float64("sweep-max", 0.95, "Sweep maximum threshold")
		sweepStep  = fs.Float64("sweep-step", 0.05, "Sweep step size")
		outPath    = fs.String("out", "", "Write a report (.json or .pb)")
		name       = fs.String("name", "", "Run name stored in the report")
		verbose    = fs.Bool("v", false, "Debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *dataDir == "" {
		fs.Usage()
		return fmt.Errorf("%w: -data required", errUsage)
	}
	// Predicted masks are class indices; only model scores can be swept.
	if *sweep && *modelPath == "" {
		return fmt.Errorf("%w: -sweep requires -model", errUsage)
	}

	enc, ok := metric.ParseEncoding(*encoding)
	if !ok || enc == metric.EncodingAuto {
		return fmt.Errorf("%w: -encoding must be sparse or onehot, got %q", errUsage, *encoding)
	}

	cfg, err := segmetrics.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	samples, err := eval.LoadDataset(*dataDir)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	logger.Info("dataset loaded", "dir", *dataDir, "samples", len(samples))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := eval.Options{
		Registry: segmetrics.NewRegistry(segmetrics.WithLogger(logger)),
		Config:   cfg,
		Metrics:  splitNames(*metrics),
		Encoding: enc,
		Loss:     *lossName,
		Workers:  *workers,
		Logger:   logger,
	}

	if *modelPath != "" {
		size := *workers
		if size <= 0 {
			size = 1
		}
		pool, err := inference.NewPool(inference.Config{
			ModelPath:   *modelPath,
			InputName:   *inputName,
			OutputName:  *outputName,
			LibraryPath: *ortLib,
		}, size)
		if err != nil {
			return fmt.Errorf("loading model: %w", err)
		}
		defer func() { _ = pool.Close() }()
		opts.Predictor = pool
	}

	res, err := eval.Evaluate(ctx, samples, opts)
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}
	printResult(res)

	var sweepResults []eval.SweepResult
	if *sweep {
		thresholds := eval.SweepThresholds(*sweepMin, *sweepMax, *sweepStep)
		sweepResults, err = eval.Sweep(ctx, samples, opts, thresholds)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		printSweep(thresholds, sweepResults)
	}

	if *outPath != "" {
		report := eval.NewReport(*name, *dataDir, res, sweepResults)
		if err := eval.WriteReport(*outPath, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info("report written", "path", *outPath, "run_id", report.RunID)
	}
	return nil
}

func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func printResult(res *eval.Result) {
	fmt.Printf("Evaluated %d samples in %s\n", res.Samples, res.Duration.Round(time.Millisecond))
	fmt.Println(strings.Repeat("-", 40))
	for _, name := range res.Names {
		fmt.Printf("%-28s %.4f\n", name, res.Metrics[name])
	}
}

func printSweep(thresholds []float64, results []eval.SweepResult) {
	fmt.Println()
	fmt.Println("Threshold Sweep Results")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("%-8s %-8s %-8s %-8s\n", "Thresh", "Prec", "Rec", "F1")

	// Print sorted by threshold for readability
	byThreshold := slices.Clone(results)
	slices.SortFunc(byThreshold, func(a, b eval.SweepResult) int {
		switch {
		case a.Threshold < b.Threshold:
			return -1
		case a.Threshold > b.Threshold:
			return 1
		}
		return 0
	})
	for _, r := range byThreshold {
		fmt.Printf("%-8.3f %-8.4f %-8.4f %-8.4f\n", r.Threshold, r.Precision, r.Recall, r.F1)
	}

	fmt.Println(strings.Repeat("-", 40))
	if len(results) > 0 {
		best := results[0]
		fmt.Printf("Optimal: %.3f (F1: %.4f) over %d thresholds\n", best.Threshold, best.F1, len(thresholds))
	}
}
