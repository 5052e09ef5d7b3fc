package famitracker

import (
	"fmt"
	"strconv"
	"strings"
)

// Field widths of a single channel in a FamiTracker text export row.
const (
	NoteWidth       = 3
	InstrumentWidth = 2
	VolumeWidth     = 1
	EffectWidth     = 3
)

// Blank sentinels for each field.
const (
	BlankNote       = "..."
	BlankInstrument = ".."
	BlankVolume     = "."
	BlankEffect     = "..."
)

const (
	rowPrefix        = "ROW "
	channelSeparator = " : "
	fieldSeparator   = " "
)

type ChannelKind int

const (
	Pitched ChannelKind = iota // Any channel which plays notes A through G.
	Noise                      // 2A03 noise, which uses the "notes" 0 through F.
	DPCM                       // 2A03 sample playback. Has no volume column.
)

func (k ChannelKind) isValid() bool {
	switch k {
	case Pitched, Noise, DPCM:
		return true
	default:
		return false
	}
}

func (k ChannelKind) String() string {
	switch k {
	case Pitched:
		return "pitched"
	case Noise:
		return "noise"
	case DPCM:
		return "dpcm"
	default:
		return fmt.Sprintf("ChannelKind(%d)", int(k))
	}
}

// MarshalText lets channel kinds appear by name in profiles.
func (k ChannelKind) MarshalText() ([]byte, error) {
	if !k.isValid() {
		return nil, fmt.Errorf("invalid channel kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *ChannelKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "pitched":
		*k = Pitched
	case "noise":
		*k = Noise
	case "dpcm":
		*k = DPCM
	default:
		return fmt.Errorf("unknown channel kind %q", text)
	}
	return nil
}

// A sound chip as it appears in the module's channel layout.
type Chip struct {
	Name     string        `yaml:"name"`
	Channels []ChannelKind `yaml:"channels"` // The channels actually used, left to right.

	// Number of channel slots the text export reserves for this chip.
	// Zero means exactly len(Channels). Any slots beyond the used channels are
	// dumped to text anyway, so they are emitted blank right after the chip's
	// used channels.
	Reserved int `yaml:"reserved,omitempty"`
}

// A single channel slot of the output document.
type Slot struct {
	Chip    string
	Kind    ChannelKind
	Padding bool // Reserved by the format but unused. Always blank.
}

// Layout is the fixed, ordered list of channel slots every row is made of.
type Layout []Slot

// NewLayout flattens a chip list into channel slots.
func NewLayout(chips []Chip) (Layout, error) {
	var layout Layout
	for _, chip := range chips {
		if len(chip.Channels) == 0 {
			return nil, fmt.Errorf("chip %q has no channels", chip.Name)
		}
		if chip.Reserved != 0 && chip.Reserved < len(chip.Channels) {
			return nil, fmt.Errorf("chip %q reserves %d slots but uses %d channels", chip.Name, chip.Reserved, len(chip.Channels))
		}
		for _, kind := range chip.Channels {
			if !kind.isValid() {
				return nil, fmt.Errorf("chip %q: invalid channel kind %d", chip.Name, int(kind))
			}
			layout = append(layout, Slot{Chip: chip.Name, Kind: kind})
		}
		for i := len(chip.Channels); i < chip.Reserved; i++ {
			layout = append(layout, Slot{Chip: chip.Name, Kind: Pitched, Padding: true})
		}
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("layout has no channels")
	}
	return layout, nil
}

// Index returns the slot index of the first channel of the given kind, or -1.
func (l Layout) Index(kind ChannelKind) int {
	for i, slot := range l {
		if !slot.Padding && slot.Kind == kind {
			return i
		}
	}
	return -1
}

// Used returns the number of non-padding slots.
func (l Layout) Used() int {
	n := 0
	for _, slot := range l {
		if !slot.Padding {
			n++
		}
	}
	return n
}

// A token group: the fields describing one channel for one row. Modules with
// more than one effect column per channel keep the extra columns in Extra.
type Group struct {
	Note       string
	Instrument string
	Volume     string
	Effect     string
	Extra      []string
}

// BlankGroup returns a group with every field blank.
func BlankGroup() Group {
	return Group{
		Note:       BlankNote,
		Instrument: BlankInstrument,
		Volume:     BlankVolume,
		Effect:     BlankEffect,
	}
}

func (g Group) String() string {
	s := g.Note + fieldSeparator + g.Instrument + fieldSeparator + g.Volume + fieldSeparator + g.Effect
	for _, effect := range g.Extra {
		s += fieldSeparator + effect
	}
	return s
}

// ParseGroup parses a channel such as "C-4 00 F ..." or, with two effect
// columns, "C-4 00 F ... 4A0".
func ParseGroup(s string) (Group, error) {
	fields := strings.Split(s, fieldSeparator)
	if len(fields) < 4 {
		return Group{}, fmt.Errorf("expected at least 4 fields in channel %q, got %d", s, len(fields))
	}
	g := Group{
		Note:       fields[0],
		Instrument: fields[1],
		Volume:     fields[2],
		Effect:     fields[3],
	}
	for _, effect := range fields[4:] {
		if len(effect) != EffectWidth {
			return Group{}, fmt.Errorf("invalid effect %q in channel %q", effect, s)
		}
		g.Extra = append(g.Extra, effect)
	}
	switch {
	case len(g.Note) != NoteWidth:
		return Group{}, fmt.Errorf("invalid note %q in channel %q", g.Note, s)
	case len(g.Instrument) != InstrumentWidth:
		return Group{}, fmt.Errorf("invalid instrument %q in channel %q", g.Instrument, s)
	case len(g.Volume) != VolumeWidth:
		return Group{}, fmt.Errorf("invalid volume %q in channel %q", g.Volume, s)
	case len(g.Effect) != EffectWidth:
		return Group{}, fmt.Errorf("invalid effect %q in channel %q", g.Effect, s)
	}
	return g, nil
}

// A row of a pattern. Index is the row number inside the pattern (00..FF).
type Row struct {
	Index    int
	Channels []Group

	Line int // Line number in the source document, 0 if synthesized.
}

// BlankRow returns a row of n blank channels.
func BlankRow(index, n int) Row {
	row := Row{Index: index, Channels: make([]Group, n)}
	for i := range row.Channels {
		row.Channels[i] = BlankGroup()
	}
	return row
}

func (r Row) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%02X", rowPrefix, r.Index)
	for _, g := range r.Channels {
		b.WriteString(channelSeparator)
		b.WriteString(g.String())
	}
	return b.String()
}

// IsRowLine reports whether a line of a text export holds a pattern row.
func IsRowLine(line string) bool {
	return strings.HasPrefix(line, rowPrefix)
}

// ParseRow parses a full "ROW XX : ... : ..." line.
func ParseRow(line string) (Row, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n "), channelSeparator)
	header, found := strings.CutPrefix(parts[0], rowPrefix)
	if !found {
		return Row{}, fmt.Errorf("row must start with %q: %s", rowPrefix, line)
	}
	index, err := strconv.ParseUint(header, 16, 8)
	if err != nil {
		return Row{}, fmt.Errorf("invalid row index %q: %w", header, err)
	}

	row := Row{Index: int(index), Channels: make([]Group, 0, len(parts)-1)}
	for i, part := range parts[1:] {
		g, err := ParseGroup(part)
		if err != nil {
			return Row{}, fmt.Errorf("channel %d: %w", i, err)
		}
		row.Channels = append(row.Channels, g)
	}
	return row, nil
}
