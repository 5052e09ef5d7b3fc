package video

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultThreshold is the gray level a pixel must exceed to count as on.
// This ignores gamma, the input frames are strictly black and white anyway.
const DefaultThreshold = 127

// A single decoded video frame, reduced to on/off pixels on demand.
type Frame struct {
	img       image.Image
	bounds    image.Rectangle
	threshold uint8
}

// NewFrame wraps an image so its pixels can be sampled by (row, column).
func NewFrame(img image.Image, threshold uint8) *Frame {
	return &Frame{img: img, bounds: img.Bounds(), threshold: threshold}
}

func (f *Frame) Width() int  { return f.bounds.Dx() }
func (f *Frame) Height() int { return f.bounds.Dy() }

// On reports whether the pixel at (row, col) is brighter than the threshold.
// Pixels outside the frame are off.
func (f *Frame) On(row, col int) bool {
	p := image.Pt(f.bounds.Min.X+col, f.bounds.Min.Y+row)
	if !p.In(f.bounds) {
		return false
	}
	if gray, ok := f.img.(*image.Gray); ok {
		return gray.GrayAt(p.X, p.Y).Y > f.threshold
	}
	return color.GrayModel.Convert(f.img.At(p.X, p.Y)).(color.Gray).Y > f.threshold
}

// Source provides video frames by their one-based index.
type Source interface {
	Frame(index int) (*Frame, error)
}

// DirSource loads numbered frames from a directory, decoding each one only
// when asked for it.
type DirSource struct {
	Dir       string
	Name      string // fmt pattern for the file name, e.g. "ba (%d).png".
	Threshold uint8
}

// Path returns the file path of the frame with the given index.
func (s *DirSource) Path(index int) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.Name, index))
}

func (s *DirSource) Frame(index int) (*Frame, error) {
	path := s.Path(index)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("frame %d: error decoding %s: %w", index, path, err)
	}
	return NewFrame(img, s.Threshold), nil
}

// Still is a Source which returns the same image for every index.
type Still struct {
	Image     image.Image
	Threshold uint8
}

func (s Still) Frame(index int) (*Frame, error) {
	if s.Image == nil {
		return nil, fmt.Errorf("frame %d: no image", index)
	}
	return NewFrame(s.Image, s.Threshold), nil
}
