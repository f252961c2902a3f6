package services

import (
	"strings"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxHashtagLen = 64

func normalizeHashtag(s string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(s), "#"))
}

// ParseHashtags normalizes raw tags, dropping empty and duplicate ones and
// keeping first-seen order. A tag longer than maxHashtagLen is rejected.
func ParseHashtags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		n := normalizeHashtag(r)
		if len(n) > maxHashtagLen {
			return nil, apperr.Validation("hashtag %q is longer than %d characters", r, maxHashtagLen)
		}
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

func findOrCreateHashtags(tx *gorm.DB, names []string) ([]models.Hashtag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tags := make([]models.Hashtag, len(names))
	for i, n := range names {
		tags[i] = models.Hashtag{Name: n}
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tags).Error; err != nil {
		return nil, apperr.FromStore(err, "hashtags")
	}

	var stored []models.Hashtag
	if err := tx.Where("name IN ?", names).Find(&stored).Error; err != nil {
		return nil, apperr.FromStore(err, "hashtags")
	}
	return stored, nil
}
