// Package feed lists posts with filtering and sorting driven entirely by
// request parameters, so no viewer's choices leak into another's feed.
package feed

import (
	"fmt"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/models"

	"gorm.io/gorm"
)

// Sort fields.
const (
	SortByDate   = "create_date"
	SortByRating = "rating"
)

// Query is one viewer's filter/sort selection.
type Query struct {
	TagIDs []uint
	SortBy string // create_date | rating
	Order  string // asc | desc
}

// Validate normalizes defaults and rejects unknown fields.
func (q *Query) Validate() error {
	if q.SortBy == "" {
		q.SortBy = SortByDate
	}
	if q.Order == "" {
		q.Order = "desc"
	}
	if q.SortBy != SortByDate && q.SortBy != SortByRating {
		return fmt.Errorf("%w: unknown sort field %q", apperr.ErrValidation, q.SortBy)
	}
	if q.Order != "asc" && q.Order != "desc" {
		return fmt.Errorf("%w: unknown sort order %q", apperr.ErrValidation, q.Order)
	}
	return nil
}

// Posts returns the posts matching the query, with tags and author loaded.
func Posts(db *gorm.DB, q Query) ([]models.Post, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	tx := db.Model(&models.Post{}).
		Preload("Tags").Preload("User")

	if len(q.TagIDs) > 0 {
		// The join duplicates posts carrying several matching tags; the
		// GROUP BY below collapses them again.
		tx = tx.Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Where("post_tags.tag_id IN ?", q.TagIDs)
	}

	switch q.SortBy {
	case SortByRating:
		tx = tx.Select("posts.*, COALESCE(SUM(post_rates.value), 0) AS rating_total").
			Joins("LEFT JOIN post_rates ON post_rates.post_id = posts.id").
			Group("posts.id").
			Order("rating_total " + q.Order)
	default:
		if len(q.TagIDs) > 0 {
			tx = tx.Group("posts.id")
		}
		tx = tx.Order("posts.created_at " + q.Order)
	}

	var posts []models.Post
	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
