package workers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/yoockh/yoohealth/internal/logger"
	"github.com/yoockh/yoohealth/internal/models"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
)

type fakePub struct {
	channel string
	payload string
}

func (f *fakePub) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.(string)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

type fakeVoice struct {
	res *services.TranscribeResult
	err error
	got services.TranscribeRequest
}

func (f *fakeVoice) Transcribe(_ context.Context, req services.TranscribeRequest) (*services.TranscribeResult, error) {
	f.got = req
	return f.res, f.err
}

func (f *fakeVoice) ListTranscripts(context.Context, string, int64) ([]models.VoiceTranscript, error) {
	return nil, nil
}

type fakeChat struct{ text, kind string }

func (f *fakeChat) Send(_ context.Context, _, text, messageType string) (*services.SendResult, error) {
	f.text, f.kind = text, messageType
	return &services.SendResult{ReplyKind: "generic"}, nil
}

func (f *fakeChat) History(context.Context, string) ([]models.ChatMessageView, error) {
	return nil, nil
}

func newTestPool(v services.VoiceService, c services.ChatService) (*VoiceWorkerPool, *fakePub) {
	pub := &fakePub{}
	p := &VoiceWorkerPool{Voice: v, Chat: c, Logger: logger.Discard(), pub: pub}
	p.defaults()
	return p, pub
}

func message(job VoiceJob) redis.XMessage {
	return redis.XMessage{ID: "1-0", Values: job.values()}
}

func decodeReply(t *testing.T, pub *fakePub) VoiceReply {
	t.Helper()
	var r VoiceReply
	if err := json.Unmarshal([]byte(pub.payload), &r); err != nil {
		t.Fatalf("reply %q: %v", pub.payload, err)
	}
	return r
}

func TestHandleMsgPublishesTranscript(t *testing.T) {
	voice := &fakeVoice{res: &services.TranscribeResult{RequestID: "r1", Text: "I feel tired", Confidence: 0.7}}
	chat := &fakeChat{}
	p, pub := newTestPool(voice, chat)

	p.handleMsg(context.Background(), message(VoiceJob{
		RequestID:   "r1",
		UserID:      "u1",
		AudioBase64: "YWJj",
		MimeType:    "audio/webm",
		ReplyTo:     "voice:reply:c1",
		AutoSend:    true,
	}))

	if voice.got.UserID != "u1" || voice.got.AudioBase64 != "YWJj" || voice.got.MimeType != "audio/webm" {
		t.Fatalf("transcribe request = %+v", voice.got)
	}
	if pub.channel != "voice:reply:c1" {
		t.Fatalf("published to %q", pub.channel)
	}
	r := decodeReply(t, pub)
	if r.Type != "transcript" || r.Text != "I feel tired" || r.RequestID != "r1" {
		t.Fatalf("reply = %+v", r)
	}
	if chat.text != "I feel tired" || chat.kind != "voice" || r.Chat == nil {
		t.Fatalf("auto-send: chat=%+v reply.Chat=%v", chat, r.Chat)
	}
}

func TestHandleMsgPublishesClassifiedError(t *testing.T) {
	voice := &fakeVoice{err: utils.E(utils.CodeConfigMissing, "VoiceService.Transcribe", "speech recognition is not configured", nil)}
	chat := &fakeChat{}
	p, pub := newTestPool(voice, chat)

	p.handleMsg(context.Background(), message(VoiceJob{RequestID: "r2", ReplyTo: "ch"}))

	r := decodeReply(t, pub)
	if r.Type != "error" || r.Code != "CONFIGURATION_MISSING" || r.Message != "speech recognition is not configured" {
		t.Fatalf("reply = %+v", r)
	}
	if chat.text != "" {
		t.Fatal("chat should not be called on failure")
	}
}

func TestHandleMsgDropsMalformedJobs(t *testing.T) {
	p, pub := newTestPool(&fakeVoice{}, nil)
	p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"user_id": "u1"}})
	if pub.channel != "" {
		t.Fatal("malformed job should not publish")
	}
}

func TestJobRoundTripThroughStreamValues(t *testing.T) {
	in := VoiceJob{RequestID: "r", UserID: "u", AudioBase64: "a", MimeType: "m", ReplyTo: "c", AutoSend: true}
	if out := jobFromMessage(message(in)); out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}
