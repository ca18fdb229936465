package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
)

const (
	DefaultVoiceStream = "voice:stream"
	DefaultVoiceGroup  = "voice-workers"
)

// VoiceJob is one transcription request carried on the stream.
type VoiceJob struct {
	RequestID   string
	UserID      string
	AudioBase64 string
	MimeType    string
	// ReplyTo is the pub/sub channel that receives the VoiceReply.
	ReplyTo string
	// AutoSend posts the transcript to the chat as a voice message.
	AutoSend bool
}

func (j VoiceJob) values() map[string]any {
	return map[string]any{
		"request_id":   j.RequestID,
		"user_id":      j.UserID,
		"audio_base64": j.AudioBase64,
		"mime_type":    j.MimeType,
		"reply_to":     j.ReplyTo,
		"auto_send":    strconv.FormatBool(j.AutoSend),
	}
}

func jobFromMessage(msg redis.XMessage) VoiceJob {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	auto, _ := strconv.ParseBool(getStr("auto_send"))
	return VoiceJob{
		RequestID:   getStr("request_id"),
		UserID:      getStr("user_id"),
		AudioBase64: getStr("audio_base64"),
		MimeType:    getStr("mime_type"),
		ReplyTo:     getStr("reply_to"),
		AutoSend:    auto,
	}
}

// VoiceReply is published on the job's reply channel.
type VoiceReply struct {
	Type       string               `json:"type"` // transcript|error
	RequestID  string               `json:"request_id"`
	Text       string               `json:"text,omitempty"`
	Confidence float64              `json:"confidence,omitempty"`
	Code       string               `json:"code,omitempty"`
	Message    string               `json:"message,omitempty"`
	Chat       *services.SendResult `json:"chat,omitempty"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type VoiceWorkerPool struct {
	Redis      *redis.Client
	Voice      services.VoiceService
	Chat       services.ChatService // optional, enables AutoSend
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	pub publisher
}

func (p *VoiceWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Voice == nil {
		return errors.New("VoiceWorkerPool missing dependency: Redis/Voice must be set")
	}
	p.defaults()
	p.pub = p.Redis

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *VoiceWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = DefaultVoiceStream
	}
	if p.Group == "" {
		p.Group = DefaultVoiceGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

func (p *VoiceWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("voice stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *VoiceWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job := jobFromMessage(msg)
	if job.RequestID == "" || job.ReplyTo == "" {
		p.Logger.WithField("redis_id", msg.ID).Warn("dropping malformed voice job")
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"request_id": job.RequestID,
		"user_id":    job.UserID,
	})

	reply := p.process(ctx, log, job)

	payload, _ := json.Marshal(reply)
	if err := p.pub.Publish(ctx, job.ReplyTo, string(payload)).Err(); err != nil {
		log.WithError(err).Warn("voice reply publish failed")
	}
}

func (p *VoiceWorkerPool) process(ctx context.Context, log *logrus.Entry, job VoiceJob) VoiceReply {
	res, err := p.Voice.Transcribe(ctx, services.TranscribeRequest{
		RequestID:   job.RequestID,
		UserID:      job.UserID,
		AudioBase64: job.AudioBase64,
		MimeType:    job.MimeType,
	})
	if err != nil {
		log.WithError(err).Warn("voice job failed")
		return VoiceReply{
			Type:      "error",
			RequestID: job.RequestID,
			Code:      string(utils.CodeOf(err)),
			Message:   utils.SafeMessage(err),
		}
	}

	reply := VoiceReply{
		Type:       "transcript",
		RequestID:  job.RequestID,
		Text:       res.Text,
		Confidence: res.Confidence,
	}
	if job.AutoSend && p.Chat != nil && res.Text != "" {
		chat, err := p.Chat.Send(ctx, job.UserID, res.Text, "voice")
		if err != nil {
			log.WithError(err).Warn("voice auto-send failed")
		}
		reply.Chat = chat
	}
	return reply
}
