package famitracker

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
)

// The header of a track: its settings, the effect column count of each channel,
// and an order list where every channel plays the same pattern number.
const segmentTemplate = `TRACK {{ printf "%3d" .PatternLength }} {{ printf "%3d" .Speed }} {{ printf "%3d" .Tempo }} "{{ .Name }}"
COLUMNS :{{ repeat .Channels " 1" }}

{{ range $order := until .Orders }}ORDER {{ printf "%02X" $order }} :{{ range until $.Channels }} {{ printf "%02X" $order }}{{ end }}
{{ end }}
`

var segmentHeader = template.Must(template.New("segment").Funcs(sprig.TxtFuncMap()).Parse(segmentTemplate))

// SegmentHeader describes one TRACK block of the output document.
type SegmentHeader struct {
	Name          string
	PatternLength int // Rows per pattern, as shown by the tracker.
	Speed         int
	Tempo         int
	Channels      int // Number of channel slots, padding included.
	Orders        int // Number of ORDER lines (frames) in the track.
}

// Writer emits a FamiTracker text export one line at a time.
// The first error sticks: later calls become no-ops and return it again.
type Writer struct {
	w   io.Writer
	n   int64
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write implements io.Writer so templates can render straight into the document.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	w.err = err
	return n, err
}

func (w *Writer) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// Segment writes a TRACK header, its column settings and its full order list.
func (w *Writer) Segment(h SegmentHeader) error {
	if h.Orders > 0x100 {
		return fmt.Errorf("segment %q has %d orders, at most 256 can be addressed", h.Name, h.Orders)
	}
	if err := segmentHeader.Execute(w, h); err != nil {
		if w.err == nil {
			w.err = err
		}
		return fmt.Errorf("error writing segment header: %w", err)
	}
	return nil
}

// Pattern starts a new pattern block.
func (w *Writer) Pattern(index int) error {
	return w.printf("PATTERN %02X\n", index)
}

// Row writes one row line.
func (w *Writer) Row(r Row) error {
	return w.printf("%s\n", r)
}

// EndPattern terminates the current pattern block with a blank line.
func (w *Writer) EndPattern() error {
	return w.printf("\n")
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Err returns the first error encountered by the writer, if any.
func (w *Writer) Err() error {
	return w.err
}
