package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RecordingLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	UserID    string             `bson:"user_id" json:"user_id"`

	MimeType   string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	State      string `bson:"state" json:"state"` // recording|finalized|errored
	ChunkCount int    `bson:"chunk_count" json:"chunk_count"`
	Bytes      int    `bson:"bytes" json:"bytes"`

	StartedAt time.Time  `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}
