package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoohealth/internal/models"
	"github.com/yoockh/yoohealth/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const RecordingCollection = "recording_logs"

type RecordingRepository interface {
	Create(ctx context.Context, l *models.RecordingLog) error
	Finish(ctx context.Context, sessionID, state string, chunks, bytes int, endedAt time.Time) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.RecordingLog, error)
}

type recordingRepo struct {
	col *mongo.Collection
}

func NewRecordingRepo(db *mongo.Database) RecordingRepository {
	return &recordingRepo{col: db.Collection(RecordingCollection)}
}

func (r *recordingRepo) Create(ctx context.Context, l *models.RecordingLog) error {
	if l.StartedAt.IsZero() {
		l.StartedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *recordingRepo) Finish(ctx context.Context, sessionID, state string, chunks, bytes int, endedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"state":       state,
			"chunk_count": chunks,
			"bytes":       bytes,
			"ended_at":    endedAt.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *recordingRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.RecordingLog, error) {
	var l models.RecordingLog
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
