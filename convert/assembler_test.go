package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"log"
	"strings"
	"testing"

	"github.com/QEStudios/famivid/video"
)

const blank = "... .. . ..."

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// recordingSource hands out the same image for every frame and remembers which
// frames were asked for.
type recordingSource struct {
	img       image.Image
	requested []int
}

func (s *recordingSource) Frame(index int) (*video.Frame, error) {
	s.requested = append(s.requested, index)
	return video.NewFrame(s.img, video.DefaultThreshold), nil
}

type missingSource struct{}

func (missingSource) Frame(index int) (*video.Frame, error) {
	return nil, fmt.Errorf("frame %d: %w", index, fs.ErrNotExist)
}

func line(index int, groups ...string) string {
	return fmt.Sprintf("ROW %02X : %s\n", index, strings.Join(groups, " : "))
}

func blankMusicRow(index, channels int) string {
	groups := make([]string, channels)
	for i := range groups {
		groups[i] = blank
	}
	return line(index, groups...)
}

// segmentHeader renders the expected header of a testConfig segment.
func segmentHeader(n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TRACK   3   0 150 \"Segment %d\"\n", n)
	b.WriteString("COLUMNS : 1 1 1 1 1\n\n")
	for o := 0; o < 4; o++ {
		fmt.Fprintf(&b, "ORDER %02X : %02X %02X %02X %02X %02X\n", o, o, o, o, o, o)
	}
	b.WriteString("\n")
	b.WriteString("PATTERN 00\n")
	b.WriteString(line(0, blank, blank, "... .. . D02", blank, blank))
	b.WriteString("\n")
	return b.String()
}

// blackPattern renders the expected pattern for a black frame and a music row.
func blackPattern(pattern int, music string) string {
	return fmt.Sprintf("PATTERN %02X\n", pattern) +
		line(0, blank, blank, blank, blank, blank) +
		line(1, blank, blank, blank, blank, blank) +
		music + "\n"
}

func TestRunSegmentBoundary(t *testing.T) {
	cfg := testConfig()
	src := &recordingSource{img: image.NewGray(image.Rect(0, 0, 16, 2))}
	a, err := NewAssembler(cfg, src, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	// Exactly one segment's worth of music, no halt.
	music := "# FamiTracker text export 0.4.2\n\nPATTERN 00\n" +
		blankMusicRow(0, 5) + blankMusicRow(1, 5) + blankMusicRow(2, 5)

	var out bytes.Buffer
	stats, err := a.Run(strings.NewReader(music), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	volumed := "... .. F ..."
	want := segmentHeader(1) +
		blackPattern(1, line(2, volumed, volumed, "... .. . D02", volumed, volumed)) +
		blackPattern(2, line(2, volumed, volumed, "... .. . D02", volumed, volumed)) +
		blackPattern(3, line(2, volumed, volumed, "... .. . C00", volumed, volumed)) +
		segmentHeader(2) +
		blackPattern(1, line(2, blank, blank, "... .. . C00", blank, blank))

	if out.String() != want {
		t.Errorf("output mismatch\n got:\n%s\nwant:\n%s", out.String(), want)
	}

	if stats.Segments != 2 || stats.Rows != 4 || stats.Frames != 4 || stats.Bytes != int64(len(want)) {
		t.Errorf("unexpected stats %+v", stats)
	}
	// One frame per row, clamped to the last frame.
	wantFrames := []int{1, 2, 3, 3}
	if fmt.Sprint(src.requested) != fmt.Sprint(wantFrames) {
		t.Errorf("frames requested %v, want %v", src.requested, wantFrames)
	}
}

func TestRunVolumeAcrossSegments(t *testing.T) {
	cfg := testConfig()
	src := &recordingSource{img: image.NewGray(image.Rect(0, 0, 16, 2))}
	a, err := NewAssembler(cfg, src, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	music := line(0, "C-3 00 6 ...", blank, blank, blank, blank) +
		blankMusicRow(1, 5) + blankMusicRow(2, 5) + blankMusicRow(3, 5) +
		line(4, blank, blank, "... .. . C00", blank, blank)

	var out bytes.Buffer
	if _, err := a.Run(strings.NewReader(music), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	doc := out.String()

	second := strings.Index(doc, "\"Segment 2\"")
	if second < 0 {
		t.Fatalf("no second segment:\n%s", doc)
	}
	// Row 3 of the music is the first row of segment 2.
	wantRow := line(2, "... .. 6 ...", "... .. F ...", "... .. . D02", "... .. F ...", "... .. F ...")
	if !strings.Contains(doc[second:], wantRow) {
		t.Errorf("segment 2 lacks %q:\n%s", wantRow, doc[second:])
	}
	if strings.Contains(doc, "\"Segment 3\"") {
		t.Errorf("the halt should end the document")
	}
}

func TestRunHaltEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameHeight = 1
	cfg.JumpEffect = "D01"
	white := image.NewGray(image.Rect(0, 0, 1, 1))
	white.SetGray(0, 0, color.Gray{Y: 255})
	src := &recordingSource{img: white}

	a, err := NewAssembler(cfg, src, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	halt := make([]string, 22)
	for i := range halt {
		halt[i] = blank
	}
	halt[4] = "... .. . C00"
	music := blankMusicRow(0, 22) + line(1, halt...) + blankMusicRow(2, 22)

	var out bytes.Buffer
	stats, err := a.Run(strings.NewReader(music), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	doc := out.String()

	if n := strings.Count(doc, "TRACK "); n != 1 {
		t.Errorf("got %d segments, want 1", n)
	}
	if n := strings.Count(doc, "PATTERN "); n != 3 {
		t.Errorf("got %d patterns, want the start pattern and 2 music patterns", n)
	}
	if stats.Rows != 2 {
		t.Errorf("got %d music rows, want 2", stats.Rows)
	}

	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	last := strings.Split(lines[len(lines)-1], " : ")
	if len(last) != 23 || !strings.HasPrefix(last[0], "ROW 01") {
		t.Fatalf("unexpected final row %q", lines[len(lines)-1])
	}
	if last[5] != "... .. . C00" {
		t.Errorf("final DPCM channel = %q, want the halt", last[5])
	}
	// The video is still drawn on the halting row's pattern.
	if len(src.requested) != 2 {
		t.Errorf("frames requested %v, want 2", src.requested)
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := testConfig()
	img := image.NewGray(image.Rect(0, 0, 16, 2))
	for _, x := range []int{0, 2, 7, 9, 10} {
		img.SetGray(x, 1, color.Gray{Y: 200})
	}
	music := line(0, "C-3 00 6 ...", blank, blank, blank, blank) + blankMusicRow(1, 5) + blankMusicRow(2, 5) + blankMusicRow(3, 5)

	render := func() []byte {
		a, err := NewAssembler(cfg, &recordingSource{img: img}, quietLogger())
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if _, err := a.Run(strings.NewReader(music), &out); err != nil {
			t.Fatal(err)
		}
		return out.Bytes()
	}
	first, second := render(), render()
	if !bytes.Equal(first, second) {
		t.Errorf("two runs over the same input differ")
	}
	if !bytes.Contains(first, []byte("G-6")) {
		t.Errorf("expected video content in the output")
	}
}

func TestRunErrors(t *testing.T) {
	cfg := testConfig()
	black := &recordingSource{img: image.NewGray(image.Rect(0, 0, 16, 2))}

	t.Run("contract", func(t *testing.T) {
		a, _ := NewAssembler(cfg, black, quietLogger())
		music := blankMusicRow(0, 5) + line(1, blank, blank, "... .. . F06", blank, blank)
		_, err := a.Run(strings.NewReader(music), io.Discard)
		var contractErr *ContractError
		if !errors.As(err, &contractErr) {
			t.Fatalf("got %v, want a *ContractError", err)
		}
		if contractErr.Line != 2 {
			t.Errorf("line = %d, want 2", contractErr.Line)
		}
	})

	t.Run("missing frame", func(t *testing.T) {
		a, _ := NewAssembler(cfg, missingSource{}, quietLogger())
		_, err := a.Run(strings.NewReader(blankMusicRow(0, 5)), io.Discard)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("got %v, want a not-exist error", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		a, _ := NewAssembler(cfg, black, quietLogger())
		if _, err := a.Run(strings.NewReader("ROW 00 : C-4\n"), io.Discard); err == nil {
			t.Fatalf("expected an error")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := testConfig()
		bad.FrameHeight = 0
		if _, err := NewAssembler(bad, black, quietLogger()); err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestStatsString(t *testing.T) {
	s := Stats{Segments: 26, Rows: 6480, Frames: 6480, Bytes: 123_000_000, Duration: 3*60e9 + 39e9}
	got := s.String()
	for _, want := range []string{"6,480 music rows", "26 segment(s)", "123 MB", "3 minutes 39 seconds"} {
		if !strings.Contains(got, want) {
			t.Errorf("%q does not mention %q", got, want)
		}
	}
}

func TestRunTwoEffectColumns(t *testing.T) {
	cfg := testConfig()
	a, err := NewAssembler(cfg, &recordingSource{img: image.NewGray(image.Rect(0, 0, 16, 2))}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	wide := "... .. . ... ..."
	music := line(0, wide, wide, wide, wide, wide)

	var out bytes.Buffer
	if _, err := a.Run(strings.NewReader(music), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := line(2, "... .. F ... ...", "... .. F ... ...", "... .. . D02 ...", "... .. F ... ...", "... .. F ... ...")
	if !strings.Contains(out.String(), want) {
		t.Errorf("output lacks %q:\n%s", want, out.String())
	}
}
