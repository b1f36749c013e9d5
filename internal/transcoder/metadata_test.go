package transcoder

import (
	"image"
	"path/filepath"
	"strings"
	"testing"

	"optimg/pkg/imgutil"
)

func TestInspectJPEGExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoot.jpg")
	writeFile(t, path, jpegWithExif(t, 16, 8, 6))

	kind, findings, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if kind != imgutil.KindJPEG {
		t.Fatalf("kind = %s", kind)
	}
	if !findings.Model || !findings.Timestamp || findings.GPS {
		t.Fatalf("unexpected findings: %+v", findings)
	}
	if findings.Orientation != 6 {
		t.Fatalf("orientation = %d, want 6", findings.Orientation)
	}
	if cats := findings.Categories(); len(cats) != 2 || cats[0] != "Device Model" || cats[1] != "Timestamp" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestInspectJPEGWithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	writeJPEG(t, path, 8, 8)

	_, findings, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if findings.Private() || findings.Orientation != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestInspectPNGText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.png")
	writeFile(t, path, pngWithText(t, "GPSLatitude", "48.8566"))

	kind, findings, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if kind != imgutil.KindPNG || !findings.GPS || findings.Model {
		t.Fatalf("unexpected result: kind=%s findings=%+v", kind, findings)
	}
}

func TestOrient(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for o := 1; o <= 8; o++ {
		b := orient(img, o).Bounds()
		swapped := o >= 5
		if swapped && (b.Dx() != 2 || b.Dy() != 4) {
			t.Fatalf("orientation %d: got %v, want 2x4", o, b)
		}
		if !swapped && (b.Dx() != 4 || b.Dy() != 2) {
			t.Fatalf("orientation %d: got %v, want 4x2", o, b)
		}
	}
}

func TestInspectRejectsOversizedPNGChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	writeFile(t, path, pngWithHugeText(t))

	kind, _, err := Inspect(path)
	if kind != imgutil.KindPNG {
		t.Fatalf("kind = %s", kind)
	}
	if err == nil || !strings.Contains(err.Error(), "declares") {
		t.Fatalf("expected a chunk length error, got %v", err)
	}
}
