package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/faithgate/faithgate/internal/gate"
	"github.com/faithgate/faithgate/internal/model"
)

// Evaluator is the subset of the gate the batch processor needs.
type Evaluator interface {
	Evaluate(ctx context.Context, answer string, evidence []model.EvidenceChunk, threshold float64) (*model.Verdict, error)
}

// Record is one batch input: an answer with the evidence it was
// generated from. Threshold 0 means "use the batch default".
type Record struct {
	ID        string                `json:"id,omitempty"`
	Answer    string                `json:"answer"`
	Evidence  []model.EvidenceChunk `json:"evidence"`
	Threshold float64               `json:"threshold,omitempty"`
}

// RecordResult pairs a record with its verdict or failure.
type RecordResult struct {
	ID      string         `json:"id,omitempty"`
	Verdict *model.Verdict `json:"verdict,omitempty"`
	Error   string         `json:"error,omitempty"`

	err error
}

// Err returns the evaluation error, if any.
func (r *RecordResult) Err() error {
	return r.err
}

// evalJob adapts one record to the pool's Job interface.
type evalJob struct {
	record    Record
	evaluator Evaluator
	threshold float64
}

func (j *evalJob) Execute(ctx context.Context) Result {
	threshold := j.record.Threshold
	if threshold == 0 {
		threshold = j.threshold
	}

	verdict, err := j.evaluator.Evaluate(ctx, j.record.Answer, j.record.Evidence, threshold)
	if err != nil {
		return &RecordResult{ID: j.record.ID, Error: err.Error(), err: err}
	}
	return &RecordResult{ID: j.record.ID, Verdict: verdict}
}

// BatchProcessor evaluates many answer/evidence records concurrently.
// Records are independent, so only the order of the result slice is
// guaranteed, never the order of execution.
type BatchProcessor struct {
	evaluator Evaluator
	pool      *Pool
	threshold float64
}

// NewBatchProcessor creates a processor with the given concurrency
// and default threshold.
func NewBatchProcessor(evaluator Evaluator, concurrency int, defaultThreshold float64) *BatchProcessor {
	if defaultThreshold <= 0 {
		defaultThreshold = gate.DefaultThreshold
	}
	return &BatchProcessor{
		evaluator: evaluator,
		pool:      NewPool(concurrency),
		threshold: defaultThreshold,
	}
}

// Process evaluates all records, returning results in record order.
func (b *BatchProcessor) Process(ctx context.Context, records []Record) []*RecordResult {
	jobs := make([]Job, len(records))
	for i, rec := range records {
		jobs[i] = &evalJob{record: rec, evaluator: b.evaluator, threshold: b.threshold}
	}

	results := b.pool.Run(ctx, jobs)

	out := make([]*RecordResult, len(results))
	for i, res := range results {
		if res == nil {
			out[i] = &RecordResult{
				ID:    records[i].ID,
				Error: ctx.Err().Error(),
				err:   ctx.Err(),
			}
			continue
		}
		out[i] = res.(*RecordResult)
	}
	return out
}

// ProcessFile reads JSONL records from a file and evaluates them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*RecordResult, error) {
	records, err := ReadRecordsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return b.Process(ctx, records), nil
}

// ReadRecordsFromFile reads one JSON record per line, skipping blank
// lines and # comments. Records without an ID get "r<line>".
func ReadRecordsFromFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("r%d", lineNo)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return records, nil
}

// Summary aggregates a batch run: the numbers an operator tracks over
// time (persistence of these is a caller concern).
type Summary struct {
	Total            int     `json:"total"`
	Faithful         int     `json:"faithful"`
	Refusals         int     `json:"refusals"`
	Failed           int     `json:"failed"`
	FlaggedClaims    int     `json:"flagged_claims"`
	MeanFaithfulness float64 `json:"mean_faithfulness"`
}

// Summarize computes batch aggregates. The mean covers evaluated
// records only; failures are counted, never scored.
func Summarize(results []*RecordResult) Summary {
	s := Summary{Total: len(results)}

	sum := 0.0
	evaluated := 0
	for _, res := range results {
		if res.err != nil || res.Verdict == nil {
			s.Failed++
			continue
		}

		evaluated++
		sum += res.Verdict.FaithfulnessScore
		if res.Verdict.IsRefusal {
			s.Refusals++
		}
		if res.Verdict.IsFaithful {
			s.Faithful++
		}
		s.FlaggedClaims += len(res.Verdict.Flagged)
	}

	if evaluated > 0 {
		s.MeanFaithfulness = math.Round(sum/float64(evaluated)*10000) / 10000
	}
	return s
}
