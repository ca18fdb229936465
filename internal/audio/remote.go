package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Messages sent to the remote client.
const (
	MsgAcquire       = "acquire"
	MsgRecord        = "record"
	MsgStopRecording = "stop_recording"
	MsgReleaseTrack  = "release_track"
)

// ControlMessage is a server-to-client instruction.
type ControlMessage struct {
	Type        string       `json:"type"`
	Constraints *Constraints `json:"constraints,omitempty"`
	MimeType    string       `json:"mime_type,omitempty"`
	TimesliceMS int64        `json:"timeslice_ms,omitempty"`
	TrackID     string       `json:"track_id,omitempty"`
}

type Sender interface {
	Send(msg ControlMessage) error
}

type SenderFunc func(msg ControlMessage) error

func (f SenderFunc) Send(msg ControlMessage) error { return f(msg) }

var errDeviceClosed = errors.New("remote device closed")

// chunkBuffer bounds how many chunks may wait for the session collector.
const chunkBuffer = 64

type acquireResult struct {
	stream Stream
	err    error
}

// RemoteDevice is a Device whose microphone lives on a connected client.
// Requests go out through Sender; the transport feeds client replies back
// with the Handle* methods.
type RemoteDevice struct {
	out       Sender
	supported map[string]struct{}

	mu      sync.Mutex
	pending chan acquireResult
	rec     *remoteRecorder
	closed  bool
}

// NewRemoteDevice creates a device for a client that reports which
// recording mime types it supports.
func NewRemoteDevice(out Sender, supportedMimeTypes []string) *RemoteDevice {
	set := make(map[string]struct{}, len(supportedMimeTypes))
	for _, m := range supportedMimeTypes {
		if m = normalizeMime(m); m != "" {
			set[m] = struct{}{}
		}
	}
	return &RemoteDevice{out: out, supported: set}
}

func normalizeMime(m string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m), " ", ""))
}

func (d *RemoteDevice) IsTypeSupported(mimeType string) bool {
	_, ok := d.supported[normalizeMime(mimeType)]
	return ok
}

func (d *RemoteDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, errDeviceClosed
	}
	ch := make(chan acquireResult, 1)
	d.pending = ch
	d.mu.Unlock()

	if err := d.out.Send(ControlMessage{Type: MsgAcquire, Constraints: &c}); err != nil {
		d.clearPending(ch)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.stream, r.err
	case <-ctx.Done():
		d.clearPending(ch)
		return nil, ctx.Err()
	}
}

func (d *RemoteDevice) clearPending(ch chan acquireResult) {
	d.mu.Lock()
	if d.pending == ch {
		d.pending = nil
	}
	d.mu.Unlock()
}

func (d *RemoteDevice) resolve(r acquireResult) bool {
	d.mu.Lock()
	ch := d.pending
	d.pending = nil
	d.mu.Unlock()
	if ch == nil {
		return false
	}
	ch <- r
	return true
}

// HandleAcquired delivers a successful acquisition. It reports false when
// no acquisition was pending.
func (d *RemoteDevice) HandleAcquired(trackIDs []string) bool {
	if len(trackIDs) == 0 {
		trackIDs = []string{"audio-0"}
	}
	st := &remoteStream{}
	for _, id := range trackIDs {
		st.tracks = append(st.tracks, &remoteTrack{id: id, out: d.out})
	}
	return d.resolve(acquireResult{stream: st})
}

// HandleAcquireFailed delivers a failed acquisition. reason is the client
// platform's error name, e.g. NotAllowedError.
func (d *RemoteDevice) HandleAcquireFailed(reason string) bool {
	return d.resolve(acquireResult{err: acquireError(reason)})
}

func acquireError(reason string) error {
	switch reason {
	case "NotAllowedError", "PermissionDeniedError", "SecurityError":
		return fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
	case "NotFoundError", "DevicesNotFoundError", "OverconstrainedError":
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, reason)
	case "":
		return errors.New("remote capture failed")
	default:
		return fmt.Errorf("remote capture failed: %s", reason)
	}
}

func (d *RemoteDevice) NewRecorder(s Stream, mimeType string) (Recorder, error) {
	if _, ok := s.(*remoteStream); !ok {
		return nil, errors.New("stream was not acquired from this device")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errDeviceClosed
	}
	if d.rec != nil && d.rec.State() == RecorderRecording {
		return nil, errors.New("recorder already active")
	}
	d.rec = &remoteRecorder{out: d.out, mimeType: mimeType, state: RecorderInactive}
	return d.rec, nil
}

// HandleChunk forwards one encoded chunk from the client.
func (d *RemoteDevice) HandleChunk(data []byte) error {
	d.mu.Lock()
	rec := d.rec
	d.mu.Unlock()
	if rec == nil {
		return ErrNotRecording
	}
	return rec.push(data)
}

// HandleRecordingStopped is the client's stop notification: no more chunks
// will follow.
func (d *RemoteDevice) HandleRecordingStopped() {
	d.mu.Lock()
	rec := d.rec
	d.mu.Unlock()
	if rec != nil {
		rec.finish()
	}
}

// Shutdown fails any pending acquisition and ends the active recorder. Used
// when the transport goes away.
func (d *RemoteDevice) Shutdown() {
	d.mu.Lock()
	d.closed = true
	rec := d.rec
	d.mu.Unlock()

	d.resolve(acquireResult{err: errDeviceClosed})
	if rec != nil {
		rec.finish()
	}
}

type remoteStream struct {
	tracks []Track
}

func (s *remoteStream) Tracks() []Track { return s.tracks }

type remoteTrack struct {
	id  string
	out Sender
}

func (t *remoteTrack) Stop() {
	_ = t.out.Send(ControlMessage{Type: MsgReleaseTrack, TrackID: t.id})
}

type remoteRecorder struct {
	out      Sender
	mimeType string

	mu       sync.Mutex
	state    RecorderState
	chunks   chan []byte
	finished bool
}

func (r *remoteRecorder) Start(timeslice time.Duration) (<-chan []byte, error) {
	r.mu.Lock()
	if r.chunks != nil {
		r.mu.Unlock()
		return nil, errors.New("recorder already started")
	}
	r.chunks = make(chan []byte, chunkBuffer)
	r.state = RecorderRecording
	ch := r.chunks
	r.mu.Unlock()

	err := r.out.Send(ControlMessage{Type: MsgRecord, MimeType: r.mimeType, TimesliceMS: timeslice.Milliseconds()})
	if err != nil {
		r.finish()
		return nil, err
	}
	return ch, nil
}

func (r *remoteRecorder) Stop() error {
	r.mu.Lock()
	if r.state != RecorderRecording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.state = RecorderInactive
	r.mu.Unlock()

	return r.out.Send(ControlMessage{Type: MsgStopRecording})
}

func (r *remoteRecorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// push holds the lock while sending so finish cannot close the channel
// underneath it. The session collector drains the channel without taking
// this lock.
func (r *remoteRecorder) push(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chunks == nil || r.finished {
		return ErrNotRecording
	}
	r.chunks <- data
	return nil
}

func (r *remoteRecorder) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RecorderInactive
	if r.chunks != nil && !r.finished {
		close(r.chunks)
	}
	r.finished = true
}
