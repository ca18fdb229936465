package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoohealth/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TranscriptCollection = "voice_transcripts"

type TranscriptRepository interface {
	Insert(ctx context.Context, t *models.VoiceTranscript) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.VoiceTranscript, error)
}

type transcriptRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewTranscriptRepo stores transcripts that expire ttl after creation.
func NewTranscriptRepo(db *mongo.Database, ttl time.Duration) TranscriptRepository {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &transcriptRepo{col: db.Collection(TranscriptCollection), ttl: ttl}
}

func (r *transcriptRepo) Insert(ctx context.Context, t *models.VoiceTranscript) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = t.CreatedAt.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *transcriptRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.VoiceTranscript, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.VoiceTranscript{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
