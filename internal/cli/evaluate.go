package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/faithgate/faithgate/internal/cache"
	"github.com/faithgate/faithgate/internal/evidence"
	"github.com/faithgate/faithgate/internal/gate"
	"github.com/faithgate/faithgate/internal/model"
	"github.com/faithgate/faithgate/internal/nli"
)

var (
	answerFile   string
	evidenceFile string
	threshold    float64
	outJSON      string
	evalTimeout  time.Duration
	nliProvider  string
	nliModel     string
	nliBaseURL   string
	gateWorkers  int
	noCache      bool
	serialize    bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [answer]",
	Short: "Evaluate one answer against its evidence",
	Long: `Evaluate scores an LLM answer against the evidence chunks it was
generated from and prints a faithfulness verdict as JSON:
- faithfulness_score: mean best-entailment across claims
- claim_scores: per-claim breakdown with best supporting chunk
- flagged_claims: claims below the threshold
- is_refusal: whether the answer correctly declined

The answer is taken from the argument, --answer-file, or stdin.

Example:
  faithgate evaluate --evidence chunks.json "Meta has lost $80 billion on Reality Labs."
  faithgate evaluate --evidence chunks.json --answer-file answer.txt --threshold 0.6
  cat answer.txt | faithgate evaluate --evidence article.html --provider lexical`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&answerFile, "answer-file", "", "file containing the answer text")
	evaluateCmd.Flags().StringVar(&evidenceFile, "evidence", "", "evidence chunks file (.json, .jsonl, .html, .txt)")
	evaluateCmd.Flags().Float64Var(&threshold, "threshold", gate.DefaultThreshold, "faithfulness threshold in [0,1]")
	evaluateCmd.Flags().StringVar(&outJSON, "json", "", "write verdict JSON to a file instead of stdout")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 2*time.Minute, "overall evaluation timeout")
	addScorerFlags(evaluateCmd)

	_ = evaluateCmd.MarkFlagRequired("evidence")
}

// addScorerFlags registers the scorer flags shared by evaluate and batch.
func addScorerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&nliProvider, "provider", "", "NLI provider (inference, openai, lexical)")
	cmd.Flags().StringVar(&nliModel, "model", "", "entailment model identifier")
	cmd.Flags().StringVar(&nliBaseURL, "base-url", "", "inference server URL")
	cmd.Flags().IntVar(&gateWorkers, "workers", 0, "concurrent claim scoring (0 = sequential)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the pair-score cache")
	cmd.Flags().BoolVar(&serialize, "serialize", false, "serialize inference calls (non-reentrant backends)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	answer, err := readAnswer(args)
	if err != nil {
		return err
	}

	chunks, err := evidence.LoadFile(evidenceFile)
	if err != nil {
		return err
	}

	cfg := buildConfig()
	g, err := buildGate(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Provider: %s\n", cfg.NLI.Provider)
		fmt.Fprintf(os.Stderr, "Model:    %s\n", cfg.NLI.Model)
		fmt.Fprintf(os.Stderr, "Evidence: %d chunks\n", len(chunks))
		fmt.Fprintln(os.Stderr)
	}

	verdict, err := g.Evaluate(ctx, answer, chunks, threshold)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}

	if verbose {
		printVerdictSummary(verdict)
	}

	return writeJSON(verdict, outJSON)
}

func readAnswer(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if answerFile != "" {
		data, err := os.ReadFile(answerFile)
		if err != nil {
			return "", fmt.Errorf("read answer file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read answer from stdin: %w", err)
	}
	return string(data), nil
}

// buildConfig merges config file, environment, and flags.
func buildConfig() *model.Config {
	cfg := loadConfig()

	if nliProvider != "" {
		cfg.NLI.Provider = nliProvider
	}
	if nliModel != "" {
		cfg.NLI.Model = nliModel
	}
	if nliBaseURL != "" {
		cfg.NLI.BaseURL = nliBaseURL
	}
	if gateWorkers > 0 {
		cfg.Gate.Workers = gateWorkers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if serialize {
		cfg.NLI.Serialize = true
	}
	if cfg.NLI.Provider == "openai" && cfg.NLI.APIKey == "" {
		cfg.NLI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg
}

// buildGate constructs the scorer stack and the gate around it:
// backend, then optional serialization, then optional caching.
func buildGate(cfg *model.Config) (*gate.Gate, error) {
	scorer, err := nli.NewScorer(nli.FromModel(cfg.NLI, cfg.RateLimiting))
	if err != nil {
		return nil, fmt.Errorf("create scorer: %w", err)
	}

	if cfg.NLI.Serialize {
		scorer = nli.NewSerializedScorer(scorer)
	}

	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve cache dir: %w", err)
			}
			dir = filepath.Join(home, ".faithgate", "cache")
		}
		store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		scorer = nli.NewCachedScorer(scorer, store, cfg.Cache.DiskTTL)
	}

	return gate.New(scorer, cfg.Gate), nil
}

func printVerdictSummary(v *model.Verdict) {
	switch {
	case v.IsRefusal:
		fmt.Fprintf(os.Stderr, "✓ Refusal detected, scored as correct behavior (1.00)\n")
	case v.IsFaithful:
		fmt.Fprintf(os.Stderr, "✓ Faithful: %.2f (threshold %.2f, %d claims)\n", v.FaithfulnessScore, v.Threshold, v.NumClaims)
	default:
		fmt.Fprintf(os.Stderr, "✗ Low confidence: %.2f (threshold %.2f, %d claims)\n", v.FaithfulnessScore, v.Threshold, v.NumClaims)
	}
	for _, c := range v.Flagged {
		fmt.Fprintf(os.Stderr, "  ⚠ (%.2f) %s\n", c.BestEntailment, c.Claim)
	}
	fmt.Fprintln(os.Stderr)
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
