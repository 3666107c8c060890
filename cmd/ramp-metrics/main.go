package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	segmetrics "github.com/jamesainslie/go-segmetrics"
	"github.com/jamesainslie/go-segmetrics/internal/eval"
	"github.com/jamesainslie/go-segmetrics/metric"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML metrics config")
	metrics := flag.String("metrics", "", "Comma-separated metric names for score")
	encoding := flag.String("encoding", "sparse", "Label encoding for score: sparse or onehot")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ramp-metrics [OPTIONS] list | score TRUTH.png PRED.png | report FILE")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	reg := segmetrics.NewRegistry(segmetrics.WithLogger(logger))

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		fmt.Println("Metrics:")
		for _, name := range reg.MetricNames() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("Losses:")
		for _, name := range reg.LossNames() {
			fmt.Printf("  %s\n", name)
		}

	case "score":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "Error: score needs TRUTH and PRED mask paths")
			os.Exit(1)
		}
		enc, ok := metric.ParseEncoding(*encoding)
		if !ok || enc == metric.EncodingAuto {
			fmt.Fprintf(os.Stderr, "Error: -encoding must be sparse or onehot, got %q\n", *encoding)
			os.Exit(1)
		}
		cfg, err := segmetrics.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var names []string
		for _, n := range strings.Split(*metrics, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}

		sample := eval.Sample{ID: "score", TruthPath: args[1], PredPath: args[2]}
		res, err := eval.Evaluate(context.Background(), []eval.Sample{sample}, eval.Options{
			Registry: reg,
			Config:   cfg,
			Metrics:  names,
			Encoding: enc,
			Workers:  1,
			Logger:   logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Truth: %s\nPred:  %s\n", args[1], args[2])
		for _, name := range res.Names {
			fmt.Printf("  %-28s %.4f\n", name, res.Metrics[name])
		}

	case "report":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "Error: report needs a FILE")
			os.Exit(1)
		}
		r, err := eval.ReadReport(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Run:     %s\n", r.RunID)
		fmt.Printf("Name:    %s\n", r.Name)
		fmt.Printf("Dataset: %s (%d samples)\n", r.Dataset, r.Samples)
		fmt.Printf("Created: %s\n", r.Created.Format("2006-01-02 15:04:05Z07:00"))
		for _, name := range r.Names {
			fmt.Printf("  %-28s %.4f\n", name, r.Metrics[name])
		}
		if len(r.Sweep) > 0 {
			best := r.Sweep[0]
			fmt.Printf("Best threshold: %.3f (P %.4f, R %.4f, F1 %.4f)\n", best.Threshold, best.Precision, best.Recall, best.F1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		os.Exit(1)
	}
}
