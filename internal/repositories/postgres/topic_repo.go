package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/yoockh/yoohealth/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TopicRepository interface {
	ListAll(ctx context.Context) ([]models.HealthTopic, error)
	ListByCategories(ctx context.Context, categories []string) ([]models.HealthTopic, error)
	Upsert(ctx context.Context, t *models.HealthTopic) error
}

type topicRepo struct {
	db *gorm.DB
}

func NewTopicRepo(db *gorm.DB) TopicRepository {
	return &topicRepo{db: db}
}

// ListAll keeps a stable order so matching ties resolve the same way on
// every call.
func (r *topicRepo) ListAll(ctx context.Context) ([]models.HealthTopic, error) {
	var rows []models.HealthTopic
	err := r.db.WithContext(ctx).Order("title ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *topicRepo) ListByCategories(ctx context.Context, categories []string) ([]models.HealthTopic, error) {
	var rows []models.HealthTopic
	err := r.db.WithContext(ctx).
		Where("lower(category) = ANY(?)", pq.Array(categories)).
		Order("title ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *topicRepo) Upsert(ctx context.Context, t *models.HealthTopic) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "category", "tags"}),
		}).
		Create(t).Error
}
