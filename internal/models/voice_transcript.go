package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TranscriptDone   = "done"
	TranscriptFailed = "failed"
)

type VoiceTranscript struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID string             `bson:"request_id" json:"request_id"`
	UserID    string             `bson:"user_id" json:"user_id"`

	MimeType   string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	AudioBytes int    `bson:"audio_bytes" json:"audio_bytes"`
	AudioURI   string `bson:"audio_uri,omitempty" json:"audio_uri,omitempty"`

	Text       string  `bson:"text,omitempty" json:"text,omitempty"`
	Confidence float64 `bson:"confidence,omitempty" json:"confidence,omitempty"`
	Status     string  `bson:"status" json:"status"` // done|failed
	ErrorCode  string  `bson:"error_code,omitempty" json:"error_code,omitempty"`
	Provider   string  `bson:"provider,omitempty" json:"provider,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms" json:"processing_time_ms"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`

	ExpiresAt time.Time `bson:"expires_at" json:"-"` // TTL index
}
