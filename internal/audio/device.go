package audio

import (
	"context"
	"time"
)

// Constraints are the capture settings requested from a device.
type Constraints struct {
	ChannelCount     int  `json:"channel_count"`
	SampleRate       int  `json:"sample_rate"`
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGainControl  bool `json:"auto_gain_control"`
}

// DefaultConstraints requests mono 44.1kHz with voice processing enabled.
var DefaultConstraints = Constraints{
	ChannelCount:     1,
	SampleRate:       44100,
	EchoCancellation: true,
	NoiseSuppression: true,
	AutoGainControl:  true,
}

// PreferredMimeTypes is tried in order; the first supported one is used.
var PreferredMimeTypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/mp4",
}

// ChunkInterval is the recorder timeslice.
const ChunkInterval = time.Second

type RecorderState string

const (
	RecorderInactive  RecorderState = "inactive"
	RecorderRecording RecorderState = "recording"
)

// Track is one acquired input track.
type Track interface {
	Stop()
}

// Stream is an acquired capture stream.
type Stream interface {
	Tracks() []Track
}

// Recorder turns a stream into encoded chunks. Start returns a channel that
// delivers chunks in capture order and is closed once the recorder has
// flushed its final chunk after Stop.
type Recorder interface {
	Start(timeslice time.Duration) (<-chan []byte, error)
	Stop() error
	State() RecorderState
}

// Device acquires capture streams. Acquire returns an error wrapping
// ErrPermissionDenied or ErrDeviceNotFound when applicable.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
	IsTypeSupported(mimeType string) bool
	NewRecorder(s Stream, mimeType string) (Recorder, error)
}

// SelectMimeType returns the first entry of prefs the device supports.
func SelectMimeType(d Device, prefs []string) (string, bool) {
	for _, m := range prefs {
		if d.IsTypeSupported(m) {
			return m, true
		}
	}
	return "", false
}
