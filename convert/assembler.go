package convert

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"github.com/QEStudios/famivid/famitracker"
	ftparser "github.com/QEStudios/famivid/parser/famitracker"
	"github.com/QEStudios/famivid/video"
)

// Stats summarises a finished conversion.
type Stats struct {
	Segments int
	Rows     int   // Music rows written, including a synthesized final halt.
	Frames   int   // Frames decoded.
	Bytes    int64 // Size of the output document.
	Duration time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%s music rows in %d segment(s), %s frames, %s written, %s of music",
		humanize.Comma(int64(s.Rows)),
		s.Segments,
		humanize.Comma(int64(s.Frames)),
		humanize.Bytes(uint64(s.Bytes)),
		durafmt.Parse(s.Duration).LimitFirstN(2),
	)
}

// Assembler merges a video and a FamiTracker text export into one document.
// Each pattern shows one frame of video and plays one row of music.
type Assembler struct {
	cfg    Config
	layout famitracker.Layout
	dpcm   int
	frames video.Source
	logger *log.Logger

	Verbose bool // Log every frame as it is rendered.
}

// NewAssembler validates cfg and prepares a conversion reading frames from
// frames.
func NewAssembler(cfg Config, frames video.Source, logger *log.Logger) (*Assembler, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	return &Assembler{
		cfg:    cfg,
		layout: layout,
		dpcm:   layout.Index(famitracker.DPCM),
		frames: frames,
		logger: logger,
	}, nil
}

// controlRow returns a blank row whose DPCM channel holds effect.
func (a *Assembler) controlRow(index int, effect string) famitracker.Row {
	row := famitracker.BlankRow(index, len(a.layout))
	row.Channels[a.dpcm].Effect = effect
	return row
}

// startSegment writes the track header, the order list and the start pattern.
// The start pattern only jumps ahead, and doubles as the resume point for
// looping playback.
func (a *Assembler) startSegment(w *famitracker.Writer, segment int) error {
	err := w.Segment(famitracker.SegmentHeader{
		Name:          fmt.Sprintf("Segment %d", segment+1),
		PatternLength: a.cfg.FrameHeight + 1,
		Speed:         a.cfg.Speed,
		Tempo:         a.cfg.Tempo,
		Channels:      len(a.layout),
		Orders:        a.cfg.RowsPerSegment() + 1,
	})
	if err != nil {
		return err
	}
	w.Pattern(0)
	w.Row(a.controlRow(0, a.cfg.JumpEffect))
	return w.EndPattern()
}

// renderFrame draws every pixel row of a frame as a pattern row.
func (a *Assembler) renderFrame(w *famitracker.Writer, index int) error {
	frame, err := a.frames.Frame(index)
	if err != nil {
		return err
	}
	if a.Verbose {
		a.logger.Printf("Opened frame %d (%dx%d)", index, frame.Width(), frame.Height())
	}
	for r := 0; r < a.cfg.FrameHeight; r++ {
		row := famitracker.Row{Index: r, Channels: video.RenderRow(a.layout, frame, r)}
		if err := w.Row(row); err != nil {
			return err
		}
	}
	return nil
}

// Run converts the whole music document, writing the merged document to out.
// It stops after the first row carrying the halt effect, or once the music
// runs out.
func (a *Assembler) Run(music io.Reader, out io.Writer) (Stats, error) {
	parser := ftparser.NewParser(music, a.logger)
	w := famitracker.NewWriter(out)
	transformer := NewTransformer(a.layout, NewVolumeCache(len(a.layout), a.cfg.DefaultVolume), a.cfg.HaltEffect, a.cfg.JumpEffect)
	rowsPerSegment := a.cfg.RowsPerSegment()

	var stats Stats
	rowIndex := 0
	finished := false

	for segment := 0; !finished; segment++ {
		if err := a.startSegment(w, segment); err != nil {
			return stats, err
		}
		stats.Segments++
		a.logger.Printf("Started segment %d at music row %d", segment+1, rowIndex)

		for !finished && rowIndex < rowsPerSegment*(segment+1) {
			pattern := rowIndex%rowsPerSegment + 1
			w.Pattern(pattern)

			// The frame is drawn even on the row which halts the song.
			if err := a.renderFrame(w, a.cfg.Timeline.FrameFor(rowIndex)); err != nil {
				return stats, err
			}
			stats.Frames++

			row, ok, err := parser.Next()
			if err != nil {
				return stats, err
			}

			var merged famitracker.Row
			if !ok {
				a.logger.Printf("End of music at row %d", rowIndex)
				merged = a.controlRow(a.cfg.FrameHeight, a.cfg.HaltEffect)
				finished = true
			} else {
				channels, halted, err := transformer.Apply(row, pattern == rowsPerSegment)
				if err != nil {
					return stats, err
				}
				if halted {
					a.logger.Printf("Halt effect at music row %d (line %d)", rowIndex, row.Line)
				}
				merged = famitracker.Row{Index: a.cfg.FrameHeight, Channels: channels}
				finished = halted
			}

			w.Row(merged)
			if err := w.EndPattern(); err != nil {
				return stats, err
			}
			rowIndex++
		}
	}

	stats.Rows = rowIndex
	stats.Bytes = w.Written()
	stats.Duration = a.cfg.Timeline.Duration(rowIndex)
	return stats, w.Err()
}
