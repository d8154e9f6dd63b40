package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/faithgate/faithgate/internal/worker"
)

var (
	concurrency  int
	batchOut     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Evaluate many answer/evidence records from a JSONL file",
	Long: `Batch evaluates records concurrently. Each input line is a JSON
record:

  {"id": "q42", "answer": "...", "evidence": [{"id": "c1", "text": "..."}], "threshold": 0.5}

Output is one verdict per line, in input order, plus an aggregate
summary on stderr (count, mean faithfulness, refusals, flagged claims).

Example:
  faithgate batch runs.jsonl
  faithgate batch runs.jsonl --concurrency 8 --out verdicts.jsonl
  faithgate batch runs.jsonl --provider lexical --threshold 0.6`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent evaluations")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output JSONL path (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&threshold, "threshold", 0, "default faithfulness threshold for records without one")
	addScorerFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg := buildConfig()
	g, err := buildGate(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Input:    %s\n", file)
		fmt.Fprintf(os.Stderr, "Workers:  %d\n", concurrency)
		fmt.Fprintf(os.Stderr, "Provider: %s (%s)\n", cfg.NLI.Provider, cfg.NLI.Model)
		fmt.Fprintln(os.Stderr)
	}

	processor := worker.NewBatchProcessor(g, concurrency, threshold)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if err := writeResults(results, batchOut); err != nil {
		return err
	}

	summary := worker.Summarize(results)
	fmt.Fprintf(os.Stderr, "Records:  %d\n", summary.Total)
	fmt.Fprintf(os.Stderr, "Faithful: %d\n", summary.Faithful)
	fmt.Fprintf(os.Stderr, "Refusals: %d\n", summary.Refusals)
	fmt.Fprintf(os.Stderr, "Failed:   %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "Flagged claims: %d\n", summary.FlaggedClaims)
	fmt.Fprintf(os.Stderr, "Mean faithfulness: %.4f\n", summary.MeanFaithfulness)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d records failed to evaluate", summary.Failed, summary.Total)
	}
	return nil
}

// writeResults writes one verdict JSON per line, in input order.
func writeResults(results []*worker.RecordResult, path string) (err error) {
	out := os.Stdout
	if path != "" {
		out, err = os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer func() {
			if closeErr := out.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", path, closeErr)
			}
		}()
	}

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result %s: %w", res.ID, err)
		}
	}
	return w.Flush()
}
