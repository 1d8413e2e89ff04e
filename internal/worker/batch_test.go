package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/unearth/internal/model"
)

type mockSubmitter struct {
	failOn string
}

func (m *mockSubmitter) Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	time.Sleep(5 * time.Millisecond)
	if m.failOn != "" && req.Primary() == m.failOn {
		return nil, errors.New("analysis failed")
	}
	return &model.AnalysisResults{Kind: req.Kind(), TrustScore: 50}, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	processor := NewBatchProcessor(&mockSubmitter{failOn: "bad claim"}, 2)

	inputs := []string{"https://example.com/a", "bad claim", "The sky is green"}
	results := processor.Process(context.Background(), inputs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, r := range results {
		if r.Input != inputs[i] {
			t.Errorf("result %d out of order: %q", i, r.Input)
		}
	}

	if results[0].Error != nil || results[0].Report.Kind != model.KindURL {
		t.Errorf("expected url report, got %+v", results[0])
	}
	if results[1].Error == nil || results[1].Report != nil {
		t.Errorf("expected failure for bad claim, got %+v", results[1])
	}
	if results[2].Report == nil || results[2].Report.Kind != model.KindText {
		t.Errorf("expected text report, got %+v", results[2])
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	results := NewBatchProcessor(&mockSubmitter{}, 2).Process(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestRequestForLine(t *testing.T) {
	if _, ok := RequestForLine("HTTPS://example.com").(model.URLRequest); !ok {
		t.Error("expected URL request for https line")
	}
	if _, ok := RequestForLine("ftp is not analyzed by reference").(model.TextRequest); !ok {
		t.Error("expected text request")
	}
}

func TestReadInputsFromFile(t *testing.T) {
	content := "https://example.com\n# comment\nVaccines contain microchips\n   \nhttps://example.com   \n"

	path := filepath.Join(t.TempDir(), "inputs.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	inputs, err := ReadInputsFromFile(path)
	if err != nil {
		t.Fatalf("ReadInputsFromFile failed: %v", err)
	}

	expected := []string{"https://example.com", "Vaccines contain microchips"}
	if strings.Join(inputs, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %v, got %v", expected, inputs)
	}

	if _, err := ReadInputsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSubmitResult_GetError(t *testing.T) {
	want := errors.New("boom")
	if (&SubmitResult{Error: want}).GetError() != want {
		t.Error("GetError should return the stored error")
	}
}
