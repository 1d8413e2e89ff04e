package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/unearth/internal/model"
)

// Submitter analyzes one request; implemented by the pipeline
type Submitter interface {
	Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error)
}

// SubmitJob analyzes one batch line
type SubmitJob struct {
	Input     string
	Request   model.AnalysisRequest
	Submitter Submitter
}

// Execute runs the submission
func (j *SubmitJob) Execute(ctx context.Context) Result {
	res, err := j.Submitter.Submit(ctx, j.Request)
	return &SubmitResult{Input: j.Input, Report: res, Error: err}
}

// SubmitResult pairs a batch line with its report or error
type SubmitResult struct {
	Input  string
	Report *model.AnalysisResults
	Error  error
}

func (r *SubmitResult) GetError() error {
	return r.Error
}

// BatchProcessor submits many inputs concurrently
type BatchProcessor struct {
	submitter   Submitter
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(submitter Submitter, concurrency int) *BatchProcessor {
	return &BatchProcessor{submitter: submitter, concurrency: concurrency}
}

// Process analyzes inputs and returns results in input order. Lines that
// look like http(s) URLs are analyzed as URLs, everything else as text.
func (b *BatchProcessor) Process(ctx context.Context, inputs []string) []*SubmitResult {
	if len(inputs) == 0 {
		return []*SubmitResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for _, in := range inputs {
		pool.Submit(&SubmitJob{Input: in, Request: RequestForLine(in), Submitter: b.submitter})
	}

	results := pool.Wait()

	out := make([]*SubmitResult, 0, len(results))
	for i, r := range results {
		if r == nil {
			out = append(out, &SubmitResult{Input: inputs[i], Error: ctx.Err()})
			continue
		}
		out = append(out, r.(*SubmitResult))
	}
	return out
}

// ProcessFile reads inputs from path and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*SubmitResult, error) {
	inputs, err := ReadInputsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	return b.Process(ctx, inputs), nil
}

// RequestForLine classifies one batch line
func RequestForLine(line string) model.AnalysisRequest {
	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return model.URLRequest{Content: line}
	}
	return model.TextRequest{Content: line}
}

// ReadInputsFromFile reads one input per line, skipping blanks, # comments
// and duplicates
func ReadInputsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadInputs(f)
}

// ReadInputs is ReadInputsFromFile over any reader
func ReadInputs(r io.Reader) ([]string, error) {
	var inputs []string
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
