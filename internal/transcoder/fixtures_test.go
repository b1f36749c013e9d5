package transcoder

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xwebp "golang.org/x/image/webp"

	"optimg/internal/config"
)

func testOptions() Options {
	return Options{
		Quality:     80,
		MaxWidth:    1200,
		Formats:     []string{".jpg", ".jpeg", ".png"},
		Workers:     4,
		OnCollision: config.CollisionFail,
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	writeFile(t, path, buf.Bytes())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	writeFile(t, path, buf.Bytes())
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// webpSize decodes only the header of a WebP file.
func webpSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := xwebp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode webp %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

// listTree returns every regular file under root, relative, sorted by walk order.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		files = append(files, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return files
}

func assertNoTempFiles(t *testing.T, root string) {
	t.Helper()
	for _, f := range listTree(t, root) {
		if strings.HasPrefix(filepath.Base(f), ".optimg-") {
			t.Fatalf("leftover temp file %s", f)
		}
	}
}

// jpegWithExif splices an APP1 EXIF segment carrying Model, Orientation and
// DateTime into a real w×h JPEG.
func jpegWithExif(t *testing.T, w, h int, orientation uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	data := buf.Bytes()

	exif := append([]byte("Exif\x00\x00"), buildExifTIFF(orientation)...)
	var seg bytes.Buffer
	seg.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&seg, binary.BigEndian, uint16(len(exif)+2))
	seg.Write(exif)

	out := append([]byte{}, data[:2]...)
	out = append(out, seg.Bytes()...)
	return append(out, data[2:]...)
}

func buildExifTIFF(orientation uint16) []byte {
	le := binary.LittleEndian
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint16(3))
	// Model, ASCII, 8 bytes at offset 50
	_ = binary.Write(&tiff, le, uint16(0x0110))
	_ = binary.Write(&tiff, le, uint16(2))
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint32(50))
	// Orientation, SHORT, inline
	_ = binary.Write(&tiff, le, uint16(0x0112))
	_ = binary.Write(&tiff, le, uint16(3))
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, orientation)
	_ = binary.Write(&tiff, le, uint16(0))
	// DateTime, ASCII, 20 bytes at offset 58
	_ = binary.Write(&tiff, le, uint16(0x0132))
	_ = binary.Write(&tiff, le, uint16(2))
	_ = binary.Write(&tiff, le, uint32(20))
	_ = binary.Write(&tiff, le, uint32(58))
	_ = binary.Write(&tiff, le, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}

// pngWithText inserts a tEXt chunk right after IHDR of a real PNG.
func pngWithText(t *testing.T, key, value string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(8, 8)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	// signature (8) + IHDR chunk (4+4+13+4)
	insertAt := 8 + 25

	out := append([]byte{}, data[:insertAt]...)
	out = append(out, buildPNGChunk("tEXt", []byte(key+"\x00"+value))...)
	return append(out, data[insertAt:]...)
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	chunk := make([]byte, 4, 12+len(data))
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	chunk = append(chunk, chunkType...)
	chunk = append(chunk, data...)
	crc := crc32.ChecksumIEEE(append([]byte(chunkType), data...))
	return binary.BigEndian.AppendUint32(chunk, crc)
}

// pngHeader is a PNG that stops after IHDR and IEND, enough for the header
// to be read without any pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolour with alpha

	out := []byte("\x89PNG\r\n\x1a\n")
	out = append(out, buildPNGChunk("IHDR", ihdr)...)
	return append(out, buildPNGChunk("IEND", nil)...)
}

// pngWithHugeText is a real PNG header followed by a tEXt chunk that claims
// almost 4 GiB and is cut off after a few bytes.
func pngWithHugeText(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(8, 8)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	out := append([]byte{}, buf.Bytes()[:8+25]...)
	out = binary.BigEndian.AppendUint32(out, 0xfffffff0)
	out = append(out, "tEXt"...)
	return append(out, "Comment\x00truncated"...)
}
