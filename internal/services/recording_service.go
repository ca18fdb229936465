package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoohealth/internal/audio"
	"github.com/yoockh/yoohealth/internal/metrics"
	"github.com/yoockh/yoohealth/internal/models"
	mongorepo "github.com/yoockh/yoohealth/internal/repositories/mongo"
	"github.com/yoockh/yoohealth/internal/utils"

	"github.com/google/uuid"
)

// RecordingService keeps the audit log of capture sessions.
type RecordingService interface {
	// Begin always returns a usable session id; the error reports a failed
	// log write only.
	Begin(ctx context.Context, userID, mimeType string) (string, error)
	Finish(ctx context.Context, sessionID string, state audio.State, chunks, bytes int) error
}

type recordingService struct {
	logs    mongorepo.RecordingRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecordingService(logs mongorepo.RecordingRepository, m *metrics.Metrics) RecordingService {
	return &recordingService{logs: logs, metrics: m, now: time.Now}
}

func (s *recordingService) Begin(ctx context.Context, userID, mimeType string) (string, error) {
	const op = "RecordingService.Begin"

	id := uuid.NewString()
	s.metrics.RecordingStarted()

	err := s.logs.Create(ctx, &models.RecordingLog{
		SessionID: id,
		UserID:    userID,
		MimeType:  mimeType,
		State:     string(audio.StateRecording),
		StartedAt: s.now().UTC(),
	})
	if err != nil {
		return id, utils.E(utils.CodeInternal, op, "failed to log recording", err)
	}
	return id, nil
}

func (s *recordingService) Finish(ctx context.Context, sessionID string, state audio.State, chunks, bytes int) error {
	const op = "RecordingService.Finish"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	s.metrics.RecordingEnded(bytes)

	if err := s.logs.Finish(ctx, sessionID, string(state), chunks, bytes, s.now().UTC()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to update recording", err)
	}
	return nil
}
