package models

import (
	"errors"
	"strings"
)

// HealthTopic is one record of the knowledge table. Tags is a comma-separated
// list and may be empty.
type HealthTopic struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string `gorm:"column:title;type:text" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Category    string `gorm:"column:category;type:text;index" json:"category"`
	Tags        string `gorm:"column:tags;type:text" json:"tags"`
}

func (HealthTopic) TableName() string { return "health_topics" }

var ErrInvalidTopic = errors.New("invalid health topic")

// Validate enforces that title, description and category are present.
func (t HealthTopic) Validate() error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return errors.Join(ErrInvalidTopic, errors.New("title is required"))
	case strings.TrimSpace(t.Description) == "":
		return errors.Join(ErrInvalidTopic, errors.New("description is required"))
	case strings.TrimSpace(t.Category) == "":
		return errors.Join(ErrInvalidTopic, errors.New("category is required"))
	}
	return nil
}

// TagList splits Tags on commas, trimming blanks.
func (t HealthTopic) TagList() []string {
	if strings.TrimSpace(t.Tags) == "" {
		return nil
	}
	parts := strings.Split(t.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
