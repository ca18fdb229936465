package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yoockh/yoohealth/internal/audio"
	"github.com/yoockh/yoohealth/internal/metrics"
	"github.com/yoockh/yoohealth/internal/models"
	"github.com/yoockh/yoohealth/internal/providers/stt"
	mongorepo "github.com/yoockh/yoohealth/internal/repositories/mongo"
	"github.com/yoockh/yoohealth/internal/storage"
	"github.com/yoockh/yoohealth/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const MaxAudioBytes = 10 << 20

type TranscribeRequest struct {
	RequestID   string
	UserID      string
	AudioBase64 string
	MimeType    string
}

type TranscribeResult struct {
	RequestID  string  `json:"request_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Provider   string  `json:"provider"`
}

type VoiceService interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error)
	ListTranscripts(ctx context.Context, userID string, limit int64) ([]models.VoiceTranscript, error)
}

type voiceService struct {
	provider    stt.Provider // nil when speech is not configured
	transcripts mongorepo.TranscriptRepository
	uploader    storage.Uploader // optional archive
	language    string
	metrics     *metrics.Metrics
	log         *logrus.Logger
}

func NewVoiceService(provider stt.Provider, transcripts mongorepo.TranscriptRepository, uploader storage.Uploader, language string, m *metrics.Metrics, log *logrus.Logger) VoiceService {
	return &voiceService{
		provider:    provider,
		transcripts: transcripts,
		uploader:    uploader,
		language:    language,
		metrics:     m,
		log:         log,
	}
}

func (s *voiceService) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	const op = "VoiceService.Transcribe"

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	entry := s.log.WithFields(logrus.Fields{"request_id": req.RequestID, "user_id": req.UserID})

	payload := strings.TrimSpace(req.AudioBase64)
	if payload == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}
	data, err := audio.DecodePortableText(payload)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio must be base64 encoded", err)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is empty", nil)
	}
	if len(data) > MaxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is too large", nil)
	}

	if s.provider == nil {
		return nil, utils.E(utils.CodeConfigMissing, op, "speech recognition is not configured", nil)
	}

	doc := &models.VoiceTranscript{
		RequestID:  req.RequestID,
		UserID:     req.UserID,
		MimeType:   req.MimeType,
		AudioBytes: len(data),
		Provider:   s.provider.Name(),
	}

	if s.uploader != nil && req.UserID != "" {
		name := storage.ObjectName("voice", req.UserID, req.RequestID, req.MimeType)
		if ref, err := s.uploader.Upload(ctx, name, req.MimeType, bytes.NewReader(data)); err != nil {
			entry.WithError(err).Warn("voice archive failed")
		} else {
			doc.AudioURI = ref
		}
	}

	start := time.Now()
	text, conf, err := s.provider.Transcribe(ctx, data, req.MimeType, s.language)
	elapsed := time.Since(start)
	doc.ProcessingTimeMS = elapsed.Milliseconds()

	if err != nil {
		appErr := classifyProvider(op, err)
		doc.Status = models.TranscriptFailed
		doc.ErrorCode = string(utils.CodeOf(appErr))
		s.record(ctx, entry, doc)
		s.metrics.ObserveTranscription(doc.Provider, "error", elapsed)
		entry.WithError(err).Warn("transcription failed")
		return nil, appErr
	}

	doc.Status = models.TranscriptDone
	doc.Text = text
	doc.Confidence = conf
	s.record(ctx, entry, doc)
	s.metrics.ObserveTranscription(doc.Provider, "ok", elapsed)

	return &TranscribeResult{
		RequestID:  req.RequestID,
		Text:       text,
		Confidence: conf,
		Provider:   doc.Provider,
	}, nil
}

// classifyProvider keeps codes the provider already assigned and treats
// everything else as the remote service being unavailable.
func classifyProvider(op string, err error) error {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return utils.E(ae.Code, op, utils.SafeMessage(err), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.E(utils.CodeTimeout, op, "speech recognition timed out", err)
	}
	return utils.E(utils.CodeUnavailable, op, "speech recognition is temporarily unavailable", err)
}

func (s *voiceService) record(ctx context.Context, entry *logrus.Entry, doc *models.VoiceTranscript) {
	if s.transcripts == nil || doc.UserID == "" {
		return
	}
	if err := s.transcripts.Insert(ctx, doc); err != nil {
		entry.WithError(err).Warn("failed to store transcript")
	}
}

func (s *voiceService) ListTranscripts(ctx context.Context, userID string, limit int64) ([]models.VoiceTranscript, error) {
	const op = "VoiceService.ListTranscripts"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "not signed in", nil)
	}
	if s.transcripts == nil {
		return []models.VoiceTranscript{}, nil
	}
	rows, err := s.transcripts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load transcripts", err)
	}
	return rows, nil
}
