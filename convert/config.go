package convert

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/QEStudios/famivid/famitracker"
	"github.com/QEStudios/famivid/video"
)

// Config holds every tunable of a conversion. It is passed by value and never
// modified once a conversion starts.
type Config struct {
	// Sound chips of the module, left to right as the text export lists them.
	Chips []famitracker.Chip `yaml:"chips"`

	// Pixel rows per frame. Each pattern holds the frame's rows followed by
	// one music row at this index, so the jump effect must point here too.
	FrameHeight int   `yaml:"frame_height"`
	Threshold   uint8 `yaml:"threshold"`

	// A segment holds as many music rows as fit in MaxPatternsPerSegment-1
	// patterns (one is reserved for the start pattern), rounded down to a
	// multiple of RowsPerPattern.
	RowsPerPattern        int `yaml:"rows_per_pattern"`
	MaxPatternsPerSegment int `yaml:"max_patterns_per_segment"`

	Timeline video.Timeline `yaml:"timeline"`

	HaltEffect    string `yaml:"halt_effect"`    // Stops the song: "C00".
	JumpEffect    string `yaml:"jump_effect"`    // Skips to the next pattern's music row: "D78" for 120 rows.
	DefaultVolume string `yaml:"default_volume"` // Volume of channels which never set one.

	// TRACK header values.
	Speed int `yaml:"speed"`
	Tempo int `yaml:"tempo"`

	FrameName string `yaml:"frame_name"` // fmt pattern of frame file names.
}

// DefaultConfig returns the settings for a 160x120 dithered video over a
// 2A03 + VRC6 + MMC5 + N163 (4 of 8 channels) + FDS + 5B module.
func DefaultConfig() Config {
	pitched := func(n int) []famitracker.ChannelKind {
		kinds := make([]famitracker.ChannelKind, n)
		for i := range kinds {
			kinds[i] = famitracker.Pitched
		}
		return kinds
	}
	return Config{
		Chips: []famitracker.Chip{
			{Name: "2A03", Channels: []famitracker.ChannelKind{
				famitracker.Pitched, famitracker.Pitched, famitracker.Pitched, famitracker.Noise, famitracker.DPCM,
			}},
			{Name: "VRC6", Channels: pitched(3)},
			{Name: "MMC5", Channels: pitched(2)},
			{Name: "N163", Channels: pitched(4), Reserved: 8},
			{Name: "FDS", Channels: pitched(1)},
			{Name: "5B", Channels: pitched(3)},
		},
		FrameHeight:           120,
		Threshold:             video.DefaultThreshold,
		RowsPerPattern:        1,
		MaxPatternsPerSegment: 256,
		Timeline:              video.DefaultTimeline(),
		HaltEffect:            "C00",
		JumpEffect:            JumpTo(120),
		DefaultVolume:         "F",
		Speed:                 0,
		Tempo:                 150,
		FrameName:             "ba (%d).png",
	}
}

// LoadProfile reads a YAML profile over base. Keys missing from the profile
// keep their base value; unknown keys are an error.
func LoadProfile(r io.Reader, base Config) (Config, error) {
	cfg := base
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error parsing profile: %w", err)
	}
	// A new frame height moves the music row, so the jump follows it unless
	// the profile names its own.
	if cfg.FrameHeight != base.FrameHeight && cfg.JumpEffect == base.JumpEffect {
		cfg.JumpEffect = JumpTo(cfg.FrameHeight)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid profile: %w", err)
	}
	return cfg, nil
}

// JumpTo returns the effect which skips to the given row of the next pattern.
func JumpTo(row int) string {
	return fmt.Sprintf("D%02X", row)
}

// RowsPerSegment returns how many music rows each segment holds.
func (c Config) RowsPerSegment() int {
	patterns := (c.MaxPatternsPerSegment - 1) / c.RowsPerPattern
	return c.RowsPerPattern * patterns
}

// Layout returns the channel slots of every row.
func (c Config) Layout() (famitracker.Layout, error) {
	return famitracker.NewLayout(c.Chips)
}

// Validate checks that the config can produce a well-formed document.
func (c Config) Validate() error {
	layout, err := c.Layout()
	if err != nil {
		return err
	}
	dpcm := 0
	for _, slot := range layout {
		if slot.Kind == famitracker.DPCM && !slot.Padding {
			dpcm++
		}
	}
	if dpcm != 1 {
		return fmt.Errorf("layout needs exactly one dpcm channel for control effects, found %d", dpcm)
	}

	switch {
	case c.FrameHeight < 1 || c.FrameHeight > 0xFF:
		return fmt.Errorf("frame height must be 1-255, got %d", c.FrameHeight)
	case c.RowsPerPattern < 1:
		return fmt.Errorf("rows per pattern must be at least 1, got %d", c.RowsPerPattern)
	case c.MaxPatternsPerSegment < 2 || c.MaxPatternsPerSegment > 0x100:
		return fmt.Errorf("max patterns per segment must be 2-256, got %d", c.MaxPatternsPerSegment)
	case c.RowsPerSegment() < 1:
		return fmt.Errorf("%d patterns per segment can't hold %d rows per pattern", c.MaxPatternsPerSegment, c.RowsPerPattern)
	case len(c.HaltEffect) != famitracker.EffectWidth || c.HaltEffect == famitracker.BlankEffect:
		return fmt.Errorf("invalid halt effect %q", c.HaltEffect)
	case len(c.JumpEffect) != famitracker.EffectWidth || c.JumpEffect == famitracker.BlankEffect:
		return fmt.Errorf("invalid jump effect %q", c.JumpEffect)
	case c.HaltEffect == c.JumpEffect:
		return fmt.Errorf("halt and jump effects must differ, both are %q", c.HaltEffect)
	case c.JumpEffect != JumpTo(c.FrameHeight):
		return fmt.Errorf("jump effect %q misses the music row, want %q for a frame height of %d", c.JumpEffect, JumpTo(c.FrameHeight), c.FrameHeight)
	case len(c.DefaultVolume) != famitracker.VolumeWidth:
		return fmt.Errorf("invalid default volume %q", c.DefaultVolume)
	case c.FrameName == "":
		return fmt.Errorf("frame name pattern is empty")
	}
	return c.Timeline.Validate()
}
