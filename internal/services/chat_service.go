package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/yoockh/yoohealth/internal/matcher"
	"github.com/yoockh/yoohealth/internal/metrics"
	"github.com/yoockh/yoohealth/internal/models"
	pgrepo "github.com/yoockh/yoohealth/internal/repositories/postgres"
	"github.com/yoockh/yoohealth/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Warnings surfaced to the client when the conversation log is degraded.
const (
	WarnUserNotSaved  = "your message could not be saved to your history"
	WarnReplyNotSaved = "the reply could not be saved to your history"
	WarnTopicsMissing = "health topics are temporarily unavailable"
)

// SendResult is the outcome of one exchange.
type SendResult struct {
	UserMessage models.ChatMessageView `json:"user_message"`
	BotMessage  models.ChatMessageView `json:"bot_message"`
	ReplyKind   matcher.ReplyKind      `json:"reply_kind"`
	Warnings    []string               `json:"warnings,omitempty"`
}

type ChatService interface {
	// Send answers text. Blank text is a no-op and yields (nil, nil). An empty
	// userID means an anonymous exchange that is not persisted.
	Send(ctx context.Context, userID, text, messageType string) (*SendResult, error)
	History(ctx context.Context, userID string) ([]models.ChatMessageView, error)
}

type chatService struct {
	chats   pgrepo.ChatRepository
	topics  TopicService
	delay   time.Duration
	metrics *metrics.Metrics
	log     *logrus.Logger
	now     func() time.Time
}

func NewChatService(chats pgrepo.ChatRepository, topics TopicService, delay time.Duration, m *metrics.Metrics, log *logrus.Logger) ChatService {
	return &chatService{
		chats:   chats,
		topics:  topics,
		delay:   delay,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *chatService) Send(ctx context.Context, userID, text, messageType string) (*SendResult, error) {
	const op = "ChatService.Send"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if messageType != models.MessageTypeVoice {
		messageType = models.MessageTypeText
	}

	res := &SendResult{}
	entry := s.log.WithFields(logrus.Fields{"user_id": userID, "op": op})

	userMsg := &models.ChatMessage{
		ID:          uuid.NewString(),
		UserID:      userID,
		Message:     text,
		MessageType: messageType,
		CreatedAt:   s.now().UTC(),
	}
	// delay first: a cancelled send persists nothing
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, utils.E(utils.CodeTimeout, op, "request cancelled", ctx.Err())
		case <-t.C:
		}
	}

	if userID != "" {
		if err := s.chats.Insert(ctx, userMsg); err != nil {
			entry.WithError(err).Warn("failed to persist user message")
			res.Warnings = append(res.Warnings, WarnUserNotSaved)
		}
	}

	topics, err := s.topics.ListAll(ctx)
	if err != nil {
		entry.WithError(err).Warn("answering without health topics")
		res.Warnings = append(res.Warnings, WarnTopicsMissing)
		topics = nil
	}

	reply := matcher.Respond(text, topics)

	botAt := s.now().UTC()
	if !botAt.After(userMsg.CreatedAt) {
		botAt = userMsg.CreatedAt.Add(time.Microsecond)
	}
	botMsg := &models.ChatMessage{
		ID:          uuid.NewString(),
		UserID:      userID,
		Message:     reply.Text,
		IsBot:       true,
		MessageType: models.MessageTypeText,
		Metadata:    replyMetadata(reply),
		CreatedAt:   botAt,
	}
	if userID != "" {
		// the question is already saved, so its answer is saved too
		if err := s.chats.Insert(context.WithoutCancel(ctx), botMsg); err != nil {
			entry.WithError(err).Warn("failed to persist bot message")
			res.Warnings = append(res.Warnings, WarnReplyNotSaved)
		}
	}

	s.metrics.ObserveReply(string(reply.Kind), len(res.Warnings))

	res.UserMessage = userMsg.View()
	res.BotMessage = botMsg.View()
	res.ReplyKind = reply.Kind
	return res, nil
}

func replyMetadata(r matcher.Reply) datatypes.JSON {
	md := map[string]any{"reply_kind": r.Kind}
	if r.Match.Found() {
		md["tier"] = r.Match.Tier.String()
		md["topic_id"] = r.Match.Topic.ID
	}
	if len(r.Suggestions) > 0 {
		md["suggestions"] = r.Suggestions
	}
	if r.Group != "" {
		md["group"] = r.Group
	}
	b, _ := json.Marshal(md)
	return datatypes.JSON(b)
}

func (s *chatService) History(ctx context.Context, userID string) ([]models.ChatMessageView, error) {
	const op = "ChatService.History"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "sign in to see your history", nil)
	}
	rows, err := s.chats.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load conversation history", err)
	}
	out := make([]models.ChatMessageView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.View())
	}
	return out, nil
}
