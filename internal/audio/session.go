package audio

import (
	"context"
	"errors"
	"sync"

	"github.com/yoockh/yoohealth/internal/utils"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateFinalized State = "finalized"
	StateErrored   State = "errored"
)

// Session is one recording lifecycle, from device acquisition to a
// finalized Blob. A Session is not reusable; start a new one per recording.
type Session struct {
	device      Device
	constraints Constraints
	preferences []string

	mu       sync.Mutex
	state    State
	starting bool
	mimeType string
	chunks   [][]byte
	stream   Stream
	recorder Recorder
	done     chan struct{}
	blob     *Blob

	// maxBytes caps the buffered audio; 0 means no cap.
	maxBytes  int
	size      int
	overLimit bool
	limit     chan struct{}

	releaseOnce sync.Once
}

type Option func(*Session)

// WithMaxBytes caps how much audio the session buffers. Once a chunk would
// exceed n the recorder is stopped, LimitReached closes and Stop fails with
// ErrTooLarge.
func WithMaxBytes(n int) Option { return func(s *Session) { s.maxBytes = n } }

func WithConstraints(c Constraints) Option { return func(s *Session) { s.constraints = c } }

func WithMimePreferences(prefs []string) Option {
	return func(s *Session) { s.preferences = append([]string(nil), prefs...) }
}

func NewSession(d Device, opts ...Option) *Session {
	s := &Session{
		device:      d,
		constraints: DefaultConstraints,
		preferences: PreferredMimeTypes,
		state:       StateIdle,
		limit:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start acquires the device, negotiates the encoding and begins recording.
// It suspends while the device grants (or refuses) access.
func (s *Session) Start(ctx context.Context) error {
	const op = "audio.Session.Start"

	s.mu.Lock()
	if s.state != StateIdle || s.starting {
		s.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "recording session already started", ErrAlreadyStarted)
	}
	s.starting = true
	s.mu.Unlock()

	stream, err := s.device.Acquire(ctx, s.constraints)
	if err != nil {
		s.fail(nil)
		return classifyAcquire(op, err)
	}

	mimeType, ok := SelectMimeType(s.device, s.preferences)
	if !ok {
		s.fail(stream)
		return utils.E(utils.CodeUnsupported, op, "no supported audio format", ErrUnsupportedFormat)
	}

	rec, err := s.device.NewRecorder(stream, mimeType)
	if err != nil {
		s.fail(stream)
		return utils.E(utils.CodeInternal, op, "failed to create recorder", errors.Join(ErrCapture, err))
	}

	chunks, err := rec.Start(ChunkInterval)
	if err != nil {
		s.fail(stream)
		return utils.E(utils.CodeInternal, op, "failed to start recorder", errors.Join(ErrCapture, err))
	}

	s.mu.Lock()
	s.stream = stream
	s.recorder = rec
	s.mimeType = mimeType
	s.done = make(chan struct{})
	s.state = StateRecording
	s.starting = false
	done := s.done
	s.mu.Unlock()

	go s.collect(chunks, done)
	return nil
}

func (s *Session) collect(chunks <-chan []byte, done chan struct{}) {
	defer close(done)
	for c := range chunks {
		if len(c) == 0 {
			continue
		}
		cp := make([]byte, len(c))
		copy(cp, c)

		s.mu.Lock()
		accept := s.state == StateRecording || s.state == StateStopping
		first := false
		if accept && s.maxBytes > 0 && s.size+len(cp) > s.maxBytes {
			accept = false
			first = !s.overLimit
			s.overLimit = true
		}
		if accept {
			s.chunks = append(s.chunks, cp)
			s.size += len(cp)
		}
		rec := s.recorder
		s.mu.Unlock()

		if first {
			close(s.limit)
			if rec.State() == RecorderRecording {
				_ = rec.Stop()
			}
		}
	}
}

// LimitReached closes when the session drops audio because of WithMaxBytes.
func (s *Session) LimitReached() <-chan struct{} { return s.limit }

func (s *Session) exceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overLimit
}

// Stop finalizes the recording and returns the concatenated blob. It waits
// for the recorder's stop notification, or for ctx to end.
func (s *Session) Stop(ctx context.Context) (*Blob, error) {
	const op = "audio.Session.Stop"

	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, utils.E(utils.CodeConflict, op, "not recording", ErrNotRecording)
	}
	s.state = StateStopping
	rec, done, stream := s.recorder, s.done, s.stream
	s.mu.Unlock()

	// the collector may already have stopped an over-limit recorder
	if err := rec.Stop(); err != nil && !s.exceeded() {
		s.fail(stream)
		return nil, utils.E(utils.CodeInternal, op, "failed to stop recorder", errors.Join(ErrCapture, err))
	}

	select {
	case <-done:
	case <-ctx.Done():
		s.fail(stream)
		return nil, utils.E(utils.CodeTimeout, op, "recorder did not finish", ctx.Err())
	}

	if s.exceeded() {
		s.fail(stream)
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording is too large", ErrTooLarge)
	}

	s.mu.Lock()
	size := 0
	for _, c := range s.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range s.chunks {
		data = append(data, c...)
	}
	s.blob = &Blob{data: data, mimeType: s.mimeType}
	s.state = StateFinalized
	blob := s.blob
	s.mu.Unlock()

	s.release(stream)
	return blob, nil
}

// Close tears down a session that was abandoned mid-recording. It is safe to
// call at any time and more than once.
func (s *Session) Close() {
	s.mu.Lock()
	state, rec, stream := s.state, s.recorder, s.stream
	if state == StateRecording || state == StateStopping {
		s.state = StateErrored
	}
	s.mu.Unlock()

	if (state == StateRecording || state == StateStopping) && rec != nil && rec.State() == RecorderRecording {
		_ = rec.Stop()
	}
	s.release(stream)
}

// IsRecording reports whether the underlying recorder is actively recording.
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	rec := s.recorder
	s.mu.Unlock()
	return rec != nil && rec.State() == RecorderRecording
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) MimeType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mimeType
}

// ChunkCount is the number of chunks buffered so far.
func (s *Session) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

func (s *Session) fail(stream Stream) {
	s.mu.Lock()
	s.state = StateErrored
	s.starting = false
	if stream != nil && s.stream == nil {
		s.stream = stream
	}
	s.mu.Unlock()
	s.release(stream)
}

// release stops every acquired track. Only the first call with a non-nil
// stream has any effect.
func (s *Session) release(stream Stream) {
	if stream == nil {
		return
	}
	s.releaseOnce.Do(func() {
		for _, t := range stream.Tracks() {
			t.Stop()
		}
	})
}
