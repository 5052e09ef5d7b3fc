package video

import (
	"fmt"
	"math"
	"time"
)

// Timeline lines up music rows with video frames.
type Timeline struct {
	// Average number of engine ticks per row. A [7,6] groove averages 6.5.
	TicksPerRow float64 `yaml:"ticks_per_row"`
	EngineRate  float64 `yaml:"engine_rate"` // Engine ticks per second (60 for NTSC).
	VideoFPS    float64 `yaml:"video_fps"`

	// Length of the music and of the audio track of the source video, measured
	// between the same start and end points in the same unit. Their ratio
	// corrects the drift between the two independently produced masters.
	AudioLength float64 `yaml:"audio_length"`
	VideoLength float64 `yaml:"video_length"`

	LastFrame int `yaml:"last_frame"` // Number of frames in the video.
}

// DefaultTimeline matches the Bad Apple!! cover the converter was written for.
func DefaultTimeline() Timeline {
	return Timeline{
		TicksPerRow: 6.5,
		EngineRate:  60,
		VideoFPS:    30,
		AudioLength: 9173852, // Samples at 44.1kHz, first kick drum to final cymbal.
		VideoLength: 9204526,
		LastFrame:   6480,
	}
}

func (t Timeline) Validate() error {
	switch {
	case t.TicksPerRow <= 0:
		return fmt.Errorf("ticks per row must be positive, got %v", t.TicksPerRow)
	case t.EngineRate <= 0:
		return fmt.Errorf("engine rate must be positive, got %v", t.EngineRate)
	case t.VideoFPS <= 0:
		return fmt.Errorf("video fps must be positive, got %v", t.VideoFPS)
	case t.AudioLength <= 0 || t.VideoLength <= 0:
		return fmt.Errorf("audio and video lengths must be positive, got %v and %v", t.AudioLength, t.VideoLength)
	case t.LastFrame < 1:
		return fmt.Errorf("last frame must be at least 1, got %d", t.LastFrame)
	}
	return nil
}

// FramesPerRow returns how many video frames pass during one row.
func (t Timeline) FramesPerRow() float64 {
	return t.TicksPerRow * (t.VideoFPS / t.EngineRate) * (t.VideoLength / t.AudioLength)
}

// FrameFor returns the one-based frame to show on the given zero-based row.
// Rows past the end of the video repeat the last frame, which is all black
// anyway.
func (t Timeline) FrameFor(row int) int {
	// Clamp before converting: huge rows overflow int.
	frame := math.Floor(float64(row)*t.FramesPerRow()) + 1
	if frame >= float64(t.LastFrame) {
		return t.LastFrame
	}
	return int(frame)
}

// Duration returns how much music the given number of rows covers.
func (t Timeline) Duration(rows int) time.Duration {
	seconds := float64(rows) * t.TicksPerRow / t.EngineRate
	return time.Duration(seconds * float64(time.Second))
}
