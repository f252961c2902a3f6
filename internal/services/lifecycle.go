package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pressroom/internal/apperr"
	"pressroom/internal/metrics"
	"pressroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Decision string

const (
	Approve Decision = "APPROVE"
	Reject  Decision = "REJECT"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(s))); d {
	case Approve, Reject:
		return d, nil
	}
	return "", apperr.Validation("decision must be APPROVE or REJECT, got %q", s)
}

type SubmitInput struct {
	Title    string
	Body     string
	Hashtags []string
}

// EditInput fields are optional; nil and "" both mean "keep the current value".
type EditInput struct {
	Title *string
	Body  *string
}

type LifecycleOptions struct {
	// RetainOnDelete keeps comments and likes of a deleted article as
	// history attached to the snapshot instead of deleting them.
	RetainOnDelete bool
	Now            func() time.Time
}

// Lifecycle moves articles through PENDING -> PUBLISHED|REJECTED and
// PUBLISHED -> DELETED. Each transition is a conditional update on the
// current state, so concurrent transitions on one article serialize and
// at most one wins.
type Lifecycle struct {
	db     *gorm.DB
	log    *slog.Logger
	retain bool
	now    func() time.Time
}

func NewLifecycle(db *gorm.DB, log *slog.Logger, opts LifecycleOptions) *Lifecycle {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Lifecycle{db: db, log: log, retain: opts.RetainOnDelete, now: opts.Now}
}

// forUpdate row-locks the selected rows on postgres. sqlite serializes
// writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func lockContent(tx *gorm.DB, id uint, states ...models.ContentState) (*models.Content, error) {
	var c models.Content
	err := forUpdate(tx).Where("id = ? AND state IN ?", id, states).First(&c).Error
	if err != nil {
		return nil, apperr.FromStore(err, fmt.Sprintf("article %d", id))
	}
	return &c, nil
}

// transition flips id from one of from to the given state with extra
// column updates. Losing a race to another transition reads as NotFound.
func transition(tx *gorm.DB, id uint, from []models.ContentState, updates map[string]any) error {
	res := tx.Model(&models.Content{}).Where("id = ? AND state IN ?", id, from).Updates(updates)
	if res.Error != nil {
		return apperr.FromStore(res.Error, "article")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("article %d not found", id)
	}
	return nil
}

func (s *Lifecycle) Submit(ctx context.Context, author models.Identity, in SubmitInput) (*models.Content, error) {
	if err := RequireActive(author); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if title == "" || body == "" {
		return nil, apperr.Validation("title or content can't be empty")
	}
	names, err := ParseHashtags(in.Hashtags)
	if err != nil {
		return nil, err
	}

	c := &models.Content{
		UserID:   author.UserID,
		Title:    title,
		Body:     body,
		State:    models.StatePending,
		PostedAt: s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := findOrCreateHashtags(tx, names)
		if err != nil {
			return err
		}
		c.Hashtags = tags
		return apperr.FromStore(tx.Omit("Hashtags.*").Create(c).Error, "submission")
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(models.StatePending)).Inc()
	s.log.Info("article submitted", "article_id", c.ID, "author_id", author.UserID)
	return s.loadAny(ctx, c.ID)
}

func (s *Lifecycle) Moderate(ctx context.Context, id uint, d Decision, moderator models.Identity) (*models.Content, error) {
	if err := RequireRole(moderator, models.PrivilegedRoles...); err != nil {
		return nil, err
	}

	var (
		to    models.ContentState
		ntype models.NotificationType
		verb  string
	)
	switch d {
	case Approve:
		to, ntype, verb = models.StatePublished, models.NotificationArticleApproved, "approved"
	case Reject:
		to, ntype, verb = models.StateRejected, models.NotificationArticleRejected, "rejected"
	default:
		return nil, apperr.Validation("unknown decision %q", d)
	}

	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockContent(tx, id, models.StatePending)
		if err != nil {
			return err
		}
		err = transition(tx, id, []models.ContentState{models.StatePending}, map[string]any{
			"state":         to,
			"decided_by_id": moderator.UserID,
			"decided_at":    now,
		})
		if err != nil {
			return err
		}
		if to == models.StatePublished {
			if err := ApplyDelta(tx, UserArticles, c.UserID, 1); err != nil {
				return err
			}
		}
		return notify(tx, models.Notification{
			UserID:    c.UserID,
			ActorID:   &moderator.UserID,
			ContentID: &c.ID,
			Type:      ntype,
			Reason:    fmt.Sprintf("Your article %q was %s.", c.Title, verb),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(to)).Inc()
	s.log.Info("article moderated", "article_id", id, "decision", d, "moderator_id", moderator.UserID)
	return s.loadAny(ctx, id)
}

func (s *Lifecycle) Edit(ctx context.Context, id uint, in EditInput, editor models.Identity) (*models.Content, error) {
	title := trimmed(in.Title)
	body := trimmed(in.Body)
	editable := []models.ContentState{models.StatePending, models.StatePublished}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockContent(tx, id, editable...)
		if err != nil {
			return err
		}
		if err := RequireOwnerOrRole(c.UserID, editor, models.PrivilegedRoles...); err != nil {
			return err
		}
		if title == "" && body == "" {
			return apperr.Validation("title or content can't be empty")
		}

		updates := map[string]any{"edited": true, "edited_at": s.now()}
		if title != "" {
			updates["title"] = title
		}
		if body != "" {
			updates["body"] = body
		}
		return transition(tx, id, editable, updates)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("article edited", "article_id", id, "editor_id", editor.UserID)
	return s.loadAny(ctx, id)
}

// Delete replaces the published article by its DELETED snapshot. Counters
// on the row are frozen at their values under the row lock.
func (s *Lifecycle) Delete(ctx context.Context, id uint, actor models.Identity) (*models.Content, error) {
	var reason models.RemovalReason
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockContent(tx, id, models.StatePublished)
		if err != nil {
			return err
		}
		if err := RequireOwnerOrRole(c.UserID, actor, models.PrivilegedRoles...); err != nil {
			return err
		}

		reason = models.RemovalDeleted
		if actor.UserID != c.UserID {
			reason = models.RemovalRemoved
		}
		err = transition(tx, id, []models.ContentState{models.StatePublished}, map[string]any{
			"state":          models.StateDeleted,
			"removed_by_id":  actor.UserID,
			"removed_at":     s.now(),
			"removal_reason": reason,
		})
		if err != nil {
			return err
		}
		if err := ApplyDelta(tx, UserArticles, c.UserID, -1); err != nil {
			return err
		}
		if !s.retain {
			if err := cascadeArticleChildren(tx, id); err != nil {
				return err
			}
		}
		if reason == models.RemovalRemoved {
			return notify(tx, models.Notification{
				UserID:    c.UserID,
				ActorID:   &actor.UserID,
				ContentID: &c.ID,
				Type:      models.NotificationArticleRemoved,
				Reason:    fmt.Sprintf("Your article %q was removed by a moderator.", c.Title),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(models.StateDeleted)).Inc()
	s.log.Info("article deleted", "article_id", id, "actor_id", actor.UserID, "reason", reason, "retain", s.retain)
	return s.loadAny(ctx, id)
}

// cascadeArticleChildren removes comment likes, comments and article likes
// of a deleted article, decrementing each comment author's counter.
func cascadeArticleChildren(tx *gorm.DB, id uint) error {
	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("content_id = ?", id)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
		return apperr.FromStore(err, "comment likes")
	}

	var perAuthor []struct {
		UserID uint
		N      int
	}
	err := tx.Model(&models.Comment{}).
		Select("user_id, COUNT(*) AS n").
		Where("content_id = ?", id).
		Group("user_id").
		Scan(&perAuthor).Error
	if err != nil {
		return apperr.FromStore(err, "comments")
	}
	for _, a := range perAuthor {
		if err := ApplyDelta(tx, UserComments, a.UserID, -a.N); err != nil {
			return err
		}
	}

	if err := tx.Where("content_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return apperr.FromStore(err, "comments")
	}
	if err := tx.Where("content_id = ?", id).Delete(&models.ArticleLike{}).Error; err != nil {
		return apperr.FromStore(err, "article likes")
	}
	return nil
}

func (s *Lifecycle) Pin(ctx context.Context, id uint) error {
	return s.setPinned(ctx, id, true)
}

func (s *Lifecycle) Unpin(ctx context.Context, id uint) error {
	return s.setPinned(ctx, id, false)
}

func (s *Lifecycle) setPinned(ctx context.Context, id uint, pinned bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, id, []models.ContentState{models.StatePublished}, map[string]any{"pinned": pinned})
	})
	if err == nil {
		s.log.Info("article pin changed", "article_id", id, "pinned", pinned)
	}
	return err
}

// Get returns a published article; every other state reads as NotFound.
func (s *Lifecycle) Get(ctx context.Context, id uint) (*models.Content, error) {
	c, err := s.loadAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Live() {
		return nil, apperr.NotFound("article %d not found", id)
	}
	return c, nil
}

// GetForViewer also exposes non-live states to the author and moderators.
func (s *Lifecycle) GetForViewer(ctx context.Context, id uint, viewer models.Identity) (*models.Content, error) {
	c, err := s.loadAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Live() {
		return c, nil
	}
	if RequireOwnerOrRole(c.UserID, viewer, models.PrivilegedRoles...) != nil {
		return nil, apperr.NotFound("article %d not found", id)
	}
	return c, nil
}

func (s *Lifecycle) loadAny(ctx context.Context, id uint) (*models.Content, error) {
	var c models.Content
	err := s.db.WithContext(ctx).Preload("User").Preload("Hashtags").First(&c, id).Error
	if err != nil {
		return nil, apperr.FromStore(err, fmt.Sprintf("article %d", id))
	}
	return &c, nil
}

// ListPublished lists live articles, pinned first.
func (s *Lifecycle) ListPublished(ctx context.Context, req PageRequest) (Page[models.Content], error) {
	return Paginate[models.Content](s.db.WithContext(ctx), req, pinnedArticleSort, publishedOnly, "User", "Hashtags")
}

// ListByState serves the moderation queues.
func (s *Lifecycle) ListByState(ctx context.Context, state models.ContentState, req PageRequest) (Page[models.Content], error) {
	return Paginate[models.Content](s.db.WithContext(ctx), req, articleSort, func(db *gorm.DB) *gorm.DB {
		return db.Where("state = ?", state)
	}, "User", "Hashtags")
}

func (s *Lifecycle) ListByAuthor(ctx context.Context, authorID uint, req PageRequest, states ...models.ContentState) (Page[models.Content], error) {
	if len(states) == 0 {
		states = []models.ContentState{models.StatePublished}
	}
	return Paginate[models.Content](s.db.WithContext(ctx), req, articleSort, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? AND state IN ?", authorID, states)
	}, "User", "Hashtags")
}

// ListDecidedBy lists live articles accepted by moderatorID.
func (s *Lifecycle) ListDecidedBy(ctx context.Context, moderatorID uint, req PageRequest) (Page[models.Content], error) {
	return Paginate[models.Content](s.db.WithContext(ctx), req, articleSort, func(db *gorm.DB) *gorm.DB {
		return db.Where("decided_by_id = ? AND state = ?", moderatorID, models.StatePublished)
	}, "User", "Hashtags")
}

func (s *Lifecycle) ListByHashtag(ctx context.Context, name string, req PageRequest) (Page[models.Content], error) {
	tagged := s.db.WithContext(ctx).
		Table("content_hashtags").
		Select("content_hashtags.content_id").
		Joins("JOIN hashtags ON hashtags.id = content_hashtags.hashtag_id").
		Where("hashtags.name = ?", normalizeHashtag(name))
	return Paginate[models.Content](s.db.WithContext(ctx), req, pinnedArticleSort, func(db *gorm.DB) *gorm.DB {
		return publishedOnly(db).Where("id IN (?)", tagged)
	}, "User", "Hashtags")
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
