package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/yoohealth/internal/utils"
)

type fakeTrack struct {
	mu    sync.Mutex
	stops int
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()
}

func (t *fakeTrack) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type fakeStream struct{ tracks []*fakeTrack }

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

// fakeRecorder emits the configured chunks when stopped, then closes.
type fakeRecorder struct {
	mu       sync.Mutex
	state    RecorderState
	pending  [][]byte
	ch       chan []byte
	startErr error
	stopErr  error
	hang     bool
}

func (r *fakeRecorder) Start(time.Duration) (<-chan []byte, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ch = make(chan []byte, len(r.pending)+1)
	r.state = RecorderRecording
	return r.ch, nil
}

func (r *fakeRecorder) Stop() error {
	if r.stopErr != nil {
		return r.stopErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RecorderInactive
	if r.hang {
		return nil
	}
	for _, c := range r.pending {
		r.ch <- c
	}
	close(r.ch)
	return nil
}

func (r *fakeRecorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

type fakeDevice struct {
	stream     *fakeStream
	acquireErr error
	supported  map[string]bool
	recorder   *fakeRecorder
	gotMime    string
	gotConstr  Constraints
}

func newFakeDevice(chunks ...[]byte) *fakeDevice {
	return &fakeDevice{
		stream:    &fakeStream{tracks: []*fakeTrack{{}}},
		supported: map[string]bool{"audio/webm;codecs=opus": true, "audio/webm": true},
		recorder:  &fakeRecorder{pending: chunks, state: RecorderInactive},
	}
}

func (d *fakeDevice) Acquire(_ context.Context, c Constraints) (Stream, error) {
	d.gotConstr = c
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	return d.stream, nil
}

func (d *fakeDevice) IsTypeSupported(m string) bool { return d.supported[m] }

func (d *fakeDevice) NewRecorder(_ Stream, m string) (Recorder, error) {
	d.gotMime = m
	return d.recorder, nil
}

func (d *fakeDevice) trackStops() int { return d.stream.tracks[0].count() }

func TestSessionStopConcatenatesChunks(t *testing.T) {
	dev := newFakeDevice(bytes.Repeat([]byte{1}, 100), bytes.Repeat([]byte{2}, 200))
	s := NewSession(dev)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRecording || !s.IsRecording() {
		t.Fatalf("state after start = %s", s.State())
	}
	if dev.gotConstr != DefaultConstraints {
		t.Fatalf("constraints = %+v", dev.gotConstr)
	}

	blob, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if blob.Size() != 300 {
		t.Fatalf("blob size = %d, want 300", blob.Size())
	}
	if blob.MimeType() != "audio/webm;codecs=opus" {
		t.Fatalf("blob mime = %q", blob.MimeType())
	}
	data := blob.Bytes()
	if data[0] != 1 || data[99] != 1 || data[100] != 2 || data[299] != 2 {
		t.Fatal("chunks were not concatenated in capture order")
	}
	if s.State() != StateFinalized || s.IsRecording() {
		t.Fatalf("state after stop = %s", s.State())
	}
	if dev.trackStops() != 1 {
		t.Fatalf("track stops = %d, want 1", dev.trackStops())
	}
}

func TestSessionReleasesTracksOnceRegardlessOfChunks(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		var chunks [][]byte
		for i := 0; i < n; i++ {
			chunks = append(chunks, []byte{byte(i)})
		}
		dev := newFakeDevice(chunks...)
		s := NewSession(dev)
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		blob, err := s.Stop(context.Background())
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if blob.Size() != n {
			t.Fatalf("blob size = %d, want %d", blob.Size(), n)
		}
		s.Close()
		if got := dev.trackStops(); got != 1 {
			t.Fatalf("%d chunks: track stops = %d, want 1", n, got)
		}
	}
}

func TestSessionStopWhenIdle(t *testing.T) {
	s := NewSession(newFakeDevice())
	_, err := s.Stop(context.Background())
	if !errors.Is(err, ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
	if !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("code = %s", utils.CodeOf(err))
	}
	if s.State() != StateIdle {
		t.Fatalf("state changed to %s", s.State())
	}
}

func TestSessionStartErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fakeDevice)
		sentinel error
		code     utils.Code
		released bool
	}{
		{
			name:     "permission denied",
			setup:    func(d *fakeDevice) { d.acquireErr = ErrPermissionDenied },
			sentinel: ErrPermissionDenied,
			code:     utils.CodeForbidden,
		},
		{
			name:     "no device",
			setup:    func(d *fakeDevice) { d.acquireErr = ErrDeviceNotFound },
			sentinel: ErrDeviceNotFound,
			code:     utils.CodeNotFound,
		},
		{
			name:     "other acquisition failure",
			setup:    func(d *fakeDevice) { d.acquireErr = errors.New("device busy") },
			sentinel: ErrCapture,
			code:     utils.CodeInternal,
		},
		{
			name:     "no supported format",
			setup:    func(d *fakeDevice) { d.supported = map[string]bool{"audio/flac": true} },
			sentinel: ErrUnsupportedFormat,
			code:     utils.CodeUnsupported,
			released: true,
		},
		{
			name:     "recorder fails to start",
			setup:    func(d *fakeDevice) { d.recorder.startErr = errors.New("encoder error") },
			sentinel: ErrCapture,
			code:     utils.CodeInternal,
			released: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			tt.setup(dev)
			s := NewSession(dev)

			err := s.Start(context.Background())
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("err = %v, want %v", err, tt.sentinel)
			}
			if !utils.IsCode(err, tt.code) {
				t.Fatalf("code = %s, want %s", utils.CodeOf(err), tt.code)
			}
			if s.State() != StateErrored {
				t.Fatalf("state = %s, want errored", s.State())
			}
			want := 0
			if tt.released {
				want = 1
			}
			if got := dev.trackStops(); got != want {
				t.Fatalf("track stops = %d, want %d", got, want)
			}
		})
	}
}

func TestSessionSelectsFirstSupportedMime(t *testing.T) {
	dev := newFakeDevice()
	dev.supported = map[string]bool{"audio/mp4": true, "audio/ogg;codecs=opus": true}
	s := NewSession(dev)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if dev.gotMime != "audio/ogg;codecs=opus" || s.MimeType() != "audio/ogg;codecs=opus" {
		t.Fatalf("mime = %q", dev.gotMime)
	}
}

func TestSessionStartTwice(t *testing.T) {
	s := NewSession(newFakeDevice())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start err = %v", err)
	}
}

func TestSessionStopTimesOut(t *testing.T) {
	dev := newFakeDevice([]byte{1})
	dev.recorder.hang = true
	s := NewSession(dev)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Stop(ctx)
	if !utils.IsCode(err, utils.CodeTimeout) {
		t.Fatalf("err = %v, want TIMEOUT", err)
	}
	if s.State() != StateErrored || dev.trackStops() != 1 {
		t.Fatalf("state = %s, stops = %d", s.State(), dev.trackStops())
	}
}

func TestSessionCloseAbandoned(t *testing.T) {
	dev := newFakeDevice([]byte{1, 2, 3})
	s := NewSession(dev)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.Close()
	s.Close()

	if dev.trackStops() != 1 {
		t.Fatalf("track stops = %d, want 1", dev.trackStops())
	}
	if s.State() != StateErrored {
		t.Fatalf("state = %s", s.State())
	}
	if dev.recorder.State() != RecorderInactive {
		t.Fatal("abandoned recorder was not stopped")
	}
}

func TestSessionCloseIdleIsNoop(t *testing.T) {
	dev := newFakeDevice()
	s := NewSession(dev)
	s.Close()
	if dev.trackStops() != 0 || s.State() != StateIdle {
		t.Fatal("closing an idle session should do nothing")
	}
}

func TestConvertToPortableTextRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0xff, 0x10, 'O', 'g', 'g', 0x7f, 0x80}
	blob := NewBlob(raw, "audio/webm")

	text, err := ConvertToPortableText(blob.Reader())
	if err != nil {
		t.Fatalf("ConvertToPortableText: %v", err)
	}
	if text != base64.StdEncoding.EncodeToString(raw) {
		t.Fatalf("text = %q", text)
	}

	decoded, err := DecodePortableText(text)
	if err != nil || !bytes.Equal(decoded, raw) {
		t.Fatalf("round trip mismatch: %v %v", decoded, err)
	}

	decoded, err = DecodePortableText("data:audio/webm;base64," + text)
	if err != nil || !bytes.Equal(decoded, raw) {
		t.Fatalf("data URL round trip mismatch: %v %v", decoded, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestConvertToPortableTextReadError(t *testing.T) {
	_, err := ConvertToPortableText(failingReader{})
	if !errors.Is(err, ErrRead) {
		t.Fatalf("err = %v, want ErrRead", err)
	}
}

func TestNoticeIsActionable(t *testing.T) {
	err := classifyAcquire("op", ErrPermissionDenied)
	if got := Notice(err); got != "Microphone access was denied. Please allow microphone permissions and try again." {
		t.Fatalf("Notice = %q", got)
	}
	if Notice(errors.New("x")) == "" {
		t.Fatal("fallback notice must not be empty")
	}
}

func TestSessionMaxBytes(t *testing.T) {
	dev := newFakeDevice(make([]byte, 40), make([]byte, 40), make([]byte, 40))
	s := NewSession(dev, WithMaxBytes(100))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	blob, err := s.Stop(context.Background())
	if blob != nil || !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Stop = %v, %v; want ErrTooLarge", blob, err)
	}
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("code = %s", utils.CodeOf(err))
	}
	select {
	case <-s.LimitReached():
	default:
		t.Fatal("LimitReached not closed")
	}
	if s.State() != StateErrored {
		t.Fatalf("state = %s", s.State())
	}
	if s.ChunkCount() != 2 {
		t.Fatalf("buffered chunks = %d, want 2", s.ChunkCount())
	}
	if dev.trackStops() != 1 {
		t.Fatalf("track stops = %d, want 1", dev.trackStops())
	}
	if Notice(err) == Notice(errors.New("x")) {
		t.Fatal("size limit needs its own notice")
	}
}

func TestSessionUnderMaxBytes(t *testing.T) {
	s := NewSession(newFakeDevice(make([]byte, 50), make([]byte, 50)), WithMaxBytes(100))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	blob, err := s.Stop(context.Background())
	if err != nil || blob.Size() != 100 {
		t.Fatalf("Stop = %v, %v", blob, err)
	}
}
