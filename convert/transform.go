package convert

import (
	"fmt"

	"github.com/QEStudios/famivid/famitracker"
)

// ContractError reports a music row that breaks the assumptions the output
// relies on. It is never recoverable: the source module has to be fixed.
type ContractError struct {
	Line   int
	Row    famitracker.Row
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Reason, e.Row)
}

// VolumeCache remembers the last volume written to each channel slot.
type VolumeCache []string

// NewVolumeCache returns a cache of n slots, all set to def.
func NewVolumeCache(n int, def string) VolumeCache {
	cache := make(VolumeCache, n)
	for i := range cache {
		cache[i] = def
	}
	return cache
}

// Transformer rewrites rows of the source module so they survive being cut
// into one-row patterns.
type Transformer struct {
	layout famitracker.Layout
	dpcm   int
	cache  VolumeCache
	halt   string
	jump   string
}

func NewTransformer(layout famitracker.Layout, cache VolumeCache, halt, jump string) *Transformer {
	return &Transformer{
		layout: layout,
		dpcm:   layout.Index(famitracker.DPCM),
		cache:  cache,
		halt:   halt,
		jump:   jump,
	}
}

// Apply returns the rewritten channels of row, and whether the row halts the
// song. Every channel gets an explicit volume so the volumes carry across
// patterns and segments, and the DPCM channel gets the effect that moves
// playback on: the jump on most rows, the halt on the last row of a segment.
func (t *Transformer) Apply(row famitracker.Row, endOfSegment bool) ([]famitracker.Group, bool, error) {
	if len(row.Channels) != len(t.layout) {
		return nil, false, &ContractError{
			Line:   row.Line,
			Row:    row,
			Reason: fmt.Sprintf("expected %d channels, got %d", len(t.layout), len(row.Channels)),
		}
	}

	out := make([]famitracker.Group, len(row.Channels))
	copy(out, row.Channels)
	halted := false

	for i := range out {
		if i == t.dpcm {
			switch out[i].Effect {
			case t.halt:
				// Finish this row, then stop.
				halted = true
			case famitracker.BlankEffect:
				if endOfSegment {
					out[i].Effect = t.halt
				} else {
					out[i].Effect = t.jump
				}
			default:
				// The DPCM channel is assumed to be silent apart from the halt.
				return nil, false, &ContractError{
					Line:   row.Line,
					Row:    row,
					Reason: fmt.Sprintf("unexpected effect %s in DPCM channel", out[i].Effect),
				}
			}
			continue
		}

		if out[i].Volume == famitracker.BlankVolume {
			out[i].Volume = t.cache[i]
		} else {
			t.cache[i] = out[i].Volume
		}
	}

	return out, halted, nil
}
