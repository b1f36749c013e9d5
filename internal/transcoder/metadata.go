package transcoder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"

	"optimg/pkg/imgutil"
)

// Findings is the identifying metadata found in a source image. None of it
// survives re-encoding; Orientation is applied to the pixels instead.
type Findings struct {
	GPS         bool
	Model       bool
	Timestamp   bool
	Serial      bool
	EXIF        bool
	Orientation int
}

// Private reports whether re-encoding drops anything identifying.
func (f Findings) Private() bool {
	return f.GPS || f.Model || f.Timestamp || f.Serial
}

func (f Findings) Categories() []string {
	cats := []string{}
	if f.GPS {
		cats = append(cats, "GPS")
	}
	if f.Model {
		cats = append(cats, "Device Model")
	}
	if f.Timestamp {
		cats = append(cats, "Timestamp")
	}
	if f.Serial {
		cats = append(cats, "Serial Number")
	}
	return cats
}

// Inspect sniffs path and reads its metadata without decoding pixels.
func Inspect(path string) (imgutil.Kind, Findings, error) {
	f, err := os.Open(path)
	if err != nil {
		return imgutil.KindUnknown, Findings{}, err
	}
	defer f.Close()

	kind, err := imgutil.SniffReader(f)
	if err != nil {
		return imgutil.KindUnknown, Findings{}, err
	}
	findings, err := inspectMetadata(f, kind)
	return kind, findings, err
}

func inspectMetadata(rs io.ReadSeeker, kind imgutil.Kind) (Findings, error) {
	switch kind {
	case imgutil.KindJPEG:
		return analyzeExif(rs)
	case imgutil.KindPNG:
		return scanPNGMetadata(rs)
	default:
		return Findings{}, nil
	}
}

func analyzeExif(rs io.ReadSeeker) (Findings, error) {
	findings := Findings{}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return findings, err
	}

	raw, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if errorsIsNoExif(err) {
			return findings, nil
		}
		return findings, err
	}
	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return findings, err
	}

	findings.EXIF = len(tags) > 0
	for _, tag := range tags {
		name := tag.TagName

		switch {
		case strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS"):
			findings.GPS = true
		case name == "Model" || name == "Make" || name == "LensModel":
			findings.Model = true
		case name == "DateTimeOriginal" || name == "DateTimeDigitized" || name == "DateTime":
			findings.Timestamp = true
		case strings.Contains(strings.ToLower(name), "serial"):
			findings.Serial = true
		case name == "Orientation" && tag.IfdPath == "IFD":
			findings.Orientation = orientationValue(tag)
		}
	}

	return findings, nil
}

func orientationValue(tag exif.ExifTag) int {
	if v, ok := tag.Value.([]uint16); ok && len(v) > 0 {
		return int(v[0])
	}
	n, err := strconv.Atoi(strings.TrimSpace(tag.FormattedFirst))
	if err != nil {
		return 0
	}
	return n
}

func errorsIsNoExif(err error) bool {
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

const (
	maxPNGChunk = 1<<31 - 1
	// keyword of 1-79 bytes plus its NUL separator
	pngKeywordMax = 80
)

// scanPNGMetadata walks the chunk list up to IDAT; text keys and tIME/eXIf
// chunks after the image data are rare enough to ignore.
func scanPNGMetadata(rs io.ReadSeeker) (Findings, error) {
	findings := Findings{}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return findings, err
	}
	br := bufio.NewReader(rs)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return findings, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return findings, fmt.Errorf("invalid PNG signature")
	}

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(br, head); err != nil {
			if err == io.EOF {
				return findings, nil
			}
			return findings, err
		}
		length := int64(binary.BigEndian.Uint32(head[:4]))
		chunk := string(head[4:8])
		if length > maxPNGChunk {
			return findings, fmt.Errorf("png chunk %q declares %d bytes", chunk, length)
		}

		switch chunk {
		case "tEXt", "zTXt", "iTXt":
			key := make([]byte, min(length, pngKeywordMax))
			if _, err := io.ReadFull(br, key); err != nil {
				return findings, err
			}
			applyPNGTextKey(&findings, key)
			length -= int64(len(key))
		case "tIME":
			findings.Timestamp = true
		case "eXIf":
			findings.EXIF = true
		case "IDAT", "IEND":
			return findings, nil
		}

		if _, err := io.CopyN(io.Discard, br, length+4); err != nil {
			return findings, err
		}
	}
}

func applyPNGTextKey(findings *Findings, data []byte) {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return
	}
	key := strings.ToLower(string(data[:idx]))
	if strings.Contains(key, "gps") || strings.Contains(key, "latitude") || strings.Contains(key, "longitude") {
		findings.GPS = true
	}
	if strings.Contains(key, "model") || strings.Contains(key, "make") {
		findings.Model = true
	}
	if strings.Contains(key, "date") || strings.Contains(key, "time") {
		findings.Timestamp = true
	}
	if strings.Contains(key, "serial") {
		findings.Serial = true
	}
}

// orient turns img upright according to an EXIF orientation value.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
