package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoohealth/internal/audio"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
	"github.com/yoockh/yoohealth/internal/workers"
)

const (
	acquireTimeout = time.Minute
	stopTimeout    = 15 * time.Second
	pingInterval   = 25 * time.Second
	readTimeout    = 60 * time.Second
	maxFrameBytes  = 1 << 20 // one client frame; audio arrives in ~1s chunks
)

// VoiceQueue hands finished recordings to the transcription workers.
type VoiceQueue interface {
	Enqueue(ctx context.Context, job workers.VoiceJob) error
	Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error, error)
}

type VoiceWSHandler struct {
	recordings services.RecordingService
	queue      VoiceQueue
	log        *logrus.Logger
	upgrader   websocket.Upgrader
	// maxAudioBytes caps one recording, matching the HTTP transcribe limit.
	maxAudioBytes int
}

func NewVoiceWSHandler(recordings services.RecordingService, queue VoiceQueue, log *logrus.Logger) *VoiceWSHandler {
	return &VoiceWSHandler{
		recordings: recordings,
		queue:      queue,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
		maxAudioBytes: services.MaxAudioBytes,
	}
}

type wsClientMsg struct {
	Type string `json:"type"`

	// start
	SupportedMimeTypes []string `json:"supported_mime_types,omitempty"`
	AutoSend           bool     `json:"auto_send,omitempty"`
	// acquired / acquire_failed
	TrackIDs []string `json:"track_ids,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	// audio_chunk
	AudioBase64 string `json:"audio_base64,omitempty"`
}

type wsServerMsg struct {
	Type      string      `json:"type"`
	State     audio.State `json:"state,omitempty"`
	MimeType  string      `json:"mime_type,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Bytes     int         `json:"bytes,omitempty"`
	Code      utils.Code  `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// capture is the per-connection recording state. One session at a time; a
// finalized or errored session may be replaced by a new start.
type capture struct {
	h       *VoiceWSHandler
	wc      *wsConn
	userID  string
	replyTo string
	log     *logrus.Entry

	mu          sync.Mutex
	device      *audio.RemoteDevice
	session     *audio.Session
	recordingID string
	autoSend    bool
	// started closes once the current session's start attempt has settled.
	started chan struct{}
}

func (h *VoiceWSHandler) VoiceWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	connID := uuid.NewString()
	cp := &capture{
		h:       h,
		wc:      wc,
		userID:  userID,
		replyTo: workers.ReplyChannel(connID),
		log:     h.log.WithFields(logrus.Fields{"user_id": userID, "conn_id": connID}),
	}
	defer cp.teardown()

	replies, closeSub, err := h.queue.Subscribe(ctx, cp.replyTo)
	if err != nil {
		cp.log.WithError(err).Error("reply subscription failed")
		_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeUnavailable, Message: "voice service unavailable"})
		return
	}
	defer closeSub()

	_ = wc.writeJSON(wsServerMsg{Type: "status", State: audio.StateIdle})

	// reader: client -> capture session
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(maxFrameBytes)
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				cp.sendError(utils.CodeInvalidArgument, "invalid json")
				continue
			}
			cp.dispatch(ctx, msg)
		}
	}()

	// writer: worker replies -> client, plus keepalive
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		case m, ok := <-replies:
			if !ok {
				return
			}
			// forward as-is (payload is a worker VoiceReply)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}

func (cp *capture) dispatch(ctx context.Context, msg wsClientMsg) {
	switch msg.Type {
	case "start":
		cp.start(ctx, msg)

	case "acquired":
		if d := cp.currentDevice(); d == nil || !d.HandleAcquired(msg.TrackIDs) {
			cp.sendError(utils.CodeConflict, "no microphone request is pending")
		}

	case "acquire_failed":
		if d := cp.currentDevice(); d == nil || !d.HandleAcquireFailed(msg.Reason) {
			cp.sendError(utils.CodeConflict, "no microphone request is pending")
		}

	case "audio_chunk":
		data, err := audio.DecodePortableText(msg.AudioBase64)
		if err != nil {
			cp.sendError(utils.CodeInvalidArgument, "audio_base64 must be base64 encoded")
			return
		}
		d := cp.currentDevice()
		if d == nil {
			cp.sendError(utils.CodeConflict, "not recording")
			return
		}
		if err := d.HandleChunk(data); err != nil {
			cp.sendError(utils.CodeConflict, "not recording")
		}

	case "recording_stopped":
		if d := cp.currentDevice(); d != nil {
			d.HandleRecordingStopped()
		}

	case "stop":
		cp.stop(ctx)

	default:
		cp.sendError(utils.CodeInvalidArgument, "unknown message type")
	}
}

func (cp *capture) start(ctx context.Context, msg wsClientMsg) {
	cp.mu.Lock()
	if cp.session != nil {
		switch cp.session.State() {
		case audio.StateFinalized, audio.StateErrored:
		default:
			cp.mu.Unlock()
			cp.sendError(utils.CodeConflict, "a recording is already in progress")
			return
		}
	}
	device := audio.NewRemoteDevice(audio.SenderFunc(func(m audio.ControlMessage) error {
		return cp.wc.writeJSON(m)
	}), msg.SupportedMimeTypes)
	session := audio.NewSession(device, audio.WithMaxBytes(cp.h.maxAudioBytes))
	started := make(chan struct{})
	cp.device, cp.session, cp.autoSend, cp.started = device, session, msg.AutoSend, started
	cp.mu.Unlock()

	// Start suspends until the client answers the acquire request, which
	// arrives through the read loop.
	go func() {
		defer close(started)
		actx, cancel := context.WithTimeout(ctx, acquireTimeout)
		defer cancel()

		if err := session.Start(actx); err != nil {
			cp.log.WithError(err).Info("capture start failed")
			cp.sendNotice(err)
			return
		}

		id, err := cp.h.recordings.Begin(ctx, cp.userID, session.MimeType())
		if err != nil {
			cp.log.WithError(err).Warn("recording log begin failed")
		}
		cp.mu.Lock()
		cp.recordingID = id
		cp.mu.Unlock()

		_ = cp.wc.writeJSON(wsServerMsg{Type: "status", State: audio.StateRecording, MimeType: session.MimeType()})

		// an oversized recording is stopped without waiting for the client
		go func() {
			select {
			case <-session.LimitReached():
				cp.stop(ctx)
			case <-ctx.Done():
			}
		}()
	}()
}

func (cp *capture) stop(ctx context.Context) {
	cp.mu.Lock()
	session, started := cp.session, cp.started
	autoSend := cp.autoSend
	cp.mu.Unlock()

	if session == nil || session.State() != audio.StateRecording {
		cp.sendError(utils.CodeConflict, "not recording")
		return
	}

	// Stop suspends until the client reports recording_stopped.
	go func() {
		<-started // recording log id is set
		sctx, cancel := context.WithTimeout(ctx, stopTimeout)
		defer cancel()

		chunks := session.ChunkCount()
		blob, err := session.Stop(sctx)
		if err != nil {
			cp.finish(ctx, audio.StateErrored, chunks, 0)
			cp.sendNotice(err)
			return
		}
		cp.finish(ctx, audio.StateFinalized, session.ChunkCount(), blob.Size())
		_ = cp.wc.writeJSON(wsServerMsg{Type: "status", State: audio.StateFinalized, MimeType: blob.MimeType(), Bytes: blob.Size()})

		if blob.Size() == 0 {
			cp.sendError(utils.CodeInvalidArgument, "no audio was captured, please try again")
			return
		}

		text, err := audio.ConvertToPortableText(blob.Reader())
		if err != nil {
			cp.sendNotice(err)
			return
		}

		job := workers.VoiceJob{
			RequestID:   uuid.NewString(),
			UserID:      cp.userID,
			AudioBase64: text,
			MimeType:    blob.MimeType(),
			ReplyTo:     cp.replyTo,
			AutoSend:    autoSend,
		}
		if err := cp.h.queue.Enqueue(ctx, job); err != nil {
			cp.log.WithError(err).Error("voice enqueue failed")
			cp.sendError(utils.CodeUnavailable, "speech recognition is temporarily unavailable")
			return
		}
		_ = cp.wc.writeJSON(wsServerMsg{Type: "status", State: audio.StateFinalized, RequestID: job.RequestID, Message: "transcribing"})
	}()
}

// finish closes the recording log entry at most once per recording.
func (cp *capture) finish(ctx context.Context, state audio.State, chunks, bytes int) {
	cp.mu.Lock()
	id := cp.recordingID
	cp.recordingID = ""
	cp.mu.Unlock()
	if id == "" {
		return
	}
	if err := cp.h.recordings.Finish(ctx, id, state, chunks, bytes); err != nil {
		cp.log.WithError(err).Warn("recording log finish failed")
	}
}

// teardown releases an abandoned session when the client goes away.
func (cp *capture) teardown() {
	cp.mu.Lock()
	device, session, started := cp.device, cp.session, cp.started
	cp.mu.Unlock()

	if device != nil {
		device.Shutdown()
	}
	if started != nil {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
		}
	}
	if session != nil {
		chunks := session.ChunkCount()
		session.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cp.finish(ctx, audio.StateErrored, chunks, 0)
	}
}

func (cp *capture) currentDevice() *audio.RemoteDevice {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.device
}

func (cp *capture) sendError(code utils.Code, msg string) {
	_ = cp.wc.writeJSON(wsServerMsg{Type: "error", Code: code, Message: msg})
}

// sendNotice reports a capture failure with an actionable message.
func (cp *capture) sendNotice(err error) {
	_ = cp.wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeOf(err), Message: audio.Notice(err)})
}
