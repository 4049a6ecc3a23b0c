package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpv-tools/rx5808/internal/scan"
)

func testResults() []scan.Result {
	return []scan.Result{
		{Index: 0, Label: "FPV 1", FrequencyMHz: 5658, Live: false, SampleSize: 900},
		{Index: 1, Label: "FPV 2", FrequencyMHz: 5695, Live: true, SampleSize: 24_000},
		{Index: 2, Label: "FPV 3", FrequencyMHz: 5732, Live: false, SampleSize: 0},
		{Index: 3, Label: "FPV 4", FrequencyMHz: 5769, Live: true, SampleSize: 7_500},
	}
}

func TestRenderDimensions(t *testing.T) {
	results := testResults()

	img, err := Render(results, 5000)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	bounds := img.Bounds()
	wantWidth := leftBorder + len(results)*(barWidth+barGap) + rightBorder
	wantHeight := topBorder + chartHeight + bottomBorder
	if bounds.Dx() != wantWidth || bounds.Dy() != wantHeight {
		t.Errorf("Expected %dx%d image, got %dx%d", wantWidth, wantHeight, bounds.Dx(), bounds.Dy())
	}
}

func TestRenderEmptyResults(t *testing.T) {
	if _, err := Render(nil, 5000); err == nil {
		t.Error("Expected an error for empty results")
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")

	if err := WritePNG(path, testResults(), 5000); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open report: %v", err)
	}
	defer f.Close()

	if _, err := png.Decode(f); err != nil {
		t.Errorf("Report is not a valid PNG: %v", err)
	}
}
