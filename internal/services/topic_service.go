package services

import (
	"context"
	"strings"
	"time"

	"github.com/yoockh/yoohealth/internal/cache"
	"github.com/yoockh/yoohealth/internal/models"
	pgrepo "github.com/yoockh/yoohealth/internal/repositories/postgres"
	"github.com/yoockh/yoohealth/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TopicService interface {
	ListAll(ctx context.Context) ([]models.HealthTopic, error)
	ListByCategories(ctx context.Context, categories []string) ([]models.HealthTopic, error)
	Upsert(ctx context.Context, t models.HealthTopic) (*models.HealthTopic, error)
}

type topicService struct {
	topics pgrepo.TopicRepository
	cache  cache.Cache
	ttl    time.Duration
	log    *logrus.Logger
}

func NewTopicService(topics pgrepo.TopicRepository, c cache.Cache, ttl time.Duration, log *logrus.Logger) TopicService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &topicService{topics: topics, cache: c, ttl: ttl, log: log}
}

func (s *topicService) ListAll(ctx context.Context) ([]models.HealthTopic, error) {
	const op = "TopicService.ListAll"

	var cached []models.HealthTopic
	hit, err := s.cache.GetJSON(ctx, cache.KeyTopicsAll, &cached)
	if err != nil {
		s.log.WithError(err).Warn("topic cache read failed")
	}
	if hit {
		return cached, nil
	}

	rows, err := s.topics.ListAll(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load health topics", err)
	}
	rows = s.validRows(rows)

	if err := s.cache.SetJSON(ctx, cache.KeyTopicsAll, rows, s.ttl); err != nil {
		s.log.WithError(err).Warn("topic cache write failed")
	}
	return rows, nil
}

func (s *topicService) ListByCategories(ctx context.Context, categories []string) ([]models.HealthTopic, error) {
	const op = "TopicService.ListByCategories"

	var cats []string
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		return s.ListAll(ctx)
	}

	rows, err := s.topics.ListByCategories(ctx, cats)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load health topics", err)
	}
	return s.validRows(rows), nil
}

func (s *topicService) Upsert(ctx context.Context, t models.HealthTopic) (*models.HealthTopic, error) {
	const op = "TopicService.Upsert"

	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if err := t.Validate(); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title, description, and category are required", err)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	if err := s.topics.Upsert(ctx, &t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save health topic", err)
	}
	if err := s.cache.Del(ctx, cache.KeyTopicsAll); err != nil {
		s.log.WithError(err).Warn("topic cache invalidation failed")
	}
	return &t, nil
}

// validRows drops records that break the topic invariant.
func (s *topicService) validRows(rows []models.HealthTopic) []models.HealthTopic {
	out := make([]models.HealthTopic, 0, len(rows))
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			s.log.WithError(err).WithField("topic_id", r.ID).Warn("skipping invalid health topic")
			continue
		}
		out = append(out, r)
	}
	return out
}
