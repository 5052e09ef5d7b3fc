package video

import (
	"github.com/QEStudios/famivid/famitracker"
)

// The encoders below turn pixels into meaningless tokens which, rendered in the
// tracker's fixed-width font, look as much like the pixels as possible.
// Each field has a tiny alphabet, so some pixel patterns can't be drawn and
// fall back to a blank field.

// Glyph of a note field.
type Note int

const (
	NoteBlank   Note = iota // nothing drawn
	NoteGSharp6             // on on on
	NoteGSharp1             // on on off
	NoteG6                  // on off on
	NoteFSharp6             // off on on
	NoiseZero               // first pixel on
	NoiseOne                // last pixel on
)

var noteText = [...]string{
	NoteBlank:   famitracker.BlankNote,
	NoteGSharp6: "G#6",
	NoteGSharp1: "G#1",
	NoteG6:      "G-6",
	NoteFSharp6: "F#6",
	NoiseZero:   "0-#",
	NoiseOne:    "1-#",
}

func (n Note) String() string { return noteText[n] }

// EncodeNote converts three pixels into a note for a channel of the given kind.
func EncodeNote(kind famitracker.ChannelKind, px [3]bool) Note {
	// The noise channel uses the "notes" 0 through F instead of A through G.
	// The middle pixel is read but can't be shown.
	if kind == famitracker.Noise {
		switch {
		case px[0]:
			return NoiseZero
		case px[2]:
			return NoiseOne
		default:
			return NoteBlank
		}
	}

	switch px {
	case [3]bool{true, true, true}:
		return NoteGSharp6
	case [3]bool{true, true, false}:
		return NoteGSharp1
	case [3]bool{true, false, true}:
		return NoteG6
	case [3]bool{false, true, true}:
		return NoteFSharp6
	default:
		// A lone pixel would need F-1, F#1 or F-6, which light up the
		// neighbouring pixels too. Sacrifice it for the sake of the rest.
		return NoteBlank
	}
}

// Glyph of an instrument field.
type Instrument int

const (
	InstrumentBlank Instrument = iota // ".."
	InstrumentBoth                    // "00"
	InstrumentLeft                    // "01"
	InstrumentRight                   // "10"
)

var instrumentText = [...]string{
	InstrumentBlank: famitracker.BlankInstrument,
	InstrumentBoth:  "00",
	InstrumentLeft:  "01",
	InstrumentRight: "10",
}

func (i Instrument) String() string { return instrumentText[i] }

// EncodeInstrument converts two pixels into an instrument number.
// 0 can't sit next to an off pixel, so the off half of a mixed pair is drawn as
// 1, the darkest digit.
func EncodeInstrument(px [2]bool) Instrument {
	switch px {
	case [2]bool{true, true}:
		return InstrumentBoth
	case [2]bool{true, false}:
		return InstrumentLeft
	case [2]bool{false, true}:
		return InstrumentRight
	default:
		return InstrumentBlank
	}
}

// Glyph of a volume field.
type Volume int

const (
	VolumeBlank Volume = iota
	VolumeOn
)

func (v Volume) String() string {
	if v == VolumeOn {
		return "0"
	}
	return famitracker.BlankVolume
}

func EncodeVolume(on bool) Volume {
	if on {
		return VolumeOn
	}
	return VolumeBlank
}

// Glyph of an effect field.
type Effect int

const (
	EffectBlank Effect = iota
	EffectG00
	EffectG01
	EffectG10
	EffectEq00
	EffectEq01
	EffectEq10
)

var effectText = [...]string{
	EffectBlank: famitracker.BlankEffect,
	EffectG00:   "G00",
	EffectG01:   "G01",
	EffectG10:   "G10",
	EffectEq00:  "=00",
	EffectEq01:  "=01",
	EffectEq10:  "=10",
}

func (e Effect) String() string { return effectText[e] }

// EncodeEffect converts three pixels into an effect.
// G is a bright letter and Gxx never turns red in any channel. = does turn red,
// which helps when its pixel should be off, and it is dark enough to give up
// the first pixel for the sake of the other two.
func EncodeEffect(px [3]bool) Effect {
	switch px {
	case [3]bool{true, true, true}:
		return EffectG00
	case [3]bool{true, true, false}:
		return EffectG01
	case [3]bool{true, false, true}:
		return EffectG10
	case [3]bool{false, true, true}:
		return EffectEq00
	case [3]bool{false, true, false}:
		return EffectEq01
	case [3]bool{false, false, true}:
		return EffectEq10
	default:
		// G11 would light the middle and last pixels.
		return EffectBlank
	}
}

// EncodeLastEffect handles the final effect of a row, which only has two
// pixels left. The missing third pixel counts as off.
func EncodeLastEffect(px [2]bool) Effect {
	switch px {
	case [2]bool{true, true}:
		return EffectG01
	case [2]bool{false, true}:
		return EffectEq01
	default:
		return EffectBlank
	}
}

// Cursor walks the pixels of one frame row from left to right.
type Cursor struct {
	frame *Frame
	row   int
	col   int
}

func NewCursor(f *Frame, row int) *Cursor {
	return &Cursor{frame: f, row: row}
}

// Col returns the next column to be read.
func (c *Cursor) Col() int { return c.col }

// Done reports whether every column of the row has been consumed.
func (c *Cursor) Done() bool { return c.col >= c.frame.Width() }

// remaining reports how many columns are left in the row.
func (c *Cursor) remaining() int { return c.frame.Width() - c.col }

func (c *Cursor) take3() [3]bool {
	px := [3]bool{
		c.frame.On(c.row, c.col),
		c.frame.On(c.row, c.col+1),
		c.frame.On(c.row, c.col+2),
	}
	c.col += 3
	return px
}

func (c *Cursor) take2() [2]bool {
	px := [2]bool{c.frame.On(c.row, c.col), c.frame.On(c.row, c.col+1)}
	c.col += 2
	return px
}

func (c *Cursor) take1() bool {
	on := c.frame.On(c.row, c.col)
	c.col++
	return on
}

// EncodeGroup draws the next 8 or 9 pixels under the cursor as one channel.
func EncodeGroup(kind famitracker.ChannelKind, c *Cursor) famitracker.Group {
	var g famitracker.Group
	g.Note = EncodeNote(kind, c.take3()).String()
	g.Instrument = EncodeInstrument(c.take2()).String()

	// The DPCM channel has no volume column. Leave a gap in the picture instead
	// of losing a column of pixels.
	if kind == famitracker.DPCM {
		g.Volume = famitracker.BlankVolume
	} else {
		g.Volume = EncodeVolume(c.take1()).String()
	}

	if c.remaining() > 3 {
		g.Effect = EncodeEffect(c.take3()).String()
	} else {
		g.Effect = EncodeLastEffect(c.take2()).String()
	}
	return g
}

// RenderRow draws one pixel row of a frame across every slot of the layout.
// Padding slots stay blank, as do any slots left once the pixels run out.
func RenderRow(layout famitracker.Layout, f *Frame, row int) []famitracker.Group {
	groups := make([]famitracker.Group, len(layout))
	c := NewCursor(f, row)
	for i, slot := range layout {
		if slot.Padding || (i > 0 && c.Done()) {
			groups[i] = famitracker.BlankGroup()
			continue
		}
		groups[i] = EncodeGroup(slot.Kind, c)
	}
	return groups
}
