package services

import (
	"math"
	"strings"

	"pressroom/internal/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts "asc"/"desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case Asc, Desc:
		return d, nil
	}
	return "", apperr.Validation("sort direction must be ASC or DESC, got %q", s)
}

// PageRequest is a 1-based page of size Size ordered by Sort.
type PageRequest struct {
	Page      int
	Size      int
	Sort      string
	Direction string
}

func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Size
}

// SortSpec whitelists the sortable fields of one entity kind. Fields maps
// the external name to a column; Leading orders are applied first (e.g.
// pinned items on top).
type SortSpec struct {
	Fields   map[string]string
	Default  string
	Leading  []string
	TieBreak string
}

type Page[T any] struct {
	Items       []T   `json:"items"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

func (r PageRequest) resolve(spec SortSpec) (string, Direction, error) {
	if r.Page < 1 {
		return "", "", apperr.Validation("page number must be >= 1")
	}
	if r.Size < 1 {
		return "", "", apperr.Validation("page size must be >= 1")
	}
	dir := Desc
	if r.Direction != "" {
		d, err := ParseDirection(r.Direction)
		if err != nil {
			return "", "", err
		}
		dir = d
	}
	field := r.Sort
	if field == "" {
		field = spec.Default
	}
	col, ok := spec.Fields[field]
	if !ok {
		return "", "", apperr.Validation("cannot sort by %q", field)
	}
	return col, dir, nil
}

// TotalPages is ceil(total/size).
func TotalPages(total int64, size int) int {
	if size < 1 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}

// Paginate counts and fetches one page of T. scope narrows the collection
// and is applied to both the count and the fetch; preloads only to the fetch.
func Paginate[T any](db *gorm.DB, req PageRequest, spec SortSpec, scope func(*gorm.DB) *gorm.DB, preloads ...string) (Page[T], error) {
	col, dir, err := req.resolve(spec)
	if err != nil {
		return Page[T]{}, err
	}
	if scope == nil {
		scope = func(d *gorm.DB) *gorm.DB { return d }
	}

	var total int64
	if err := db.Model(new(T)).Scopes(scope).Count(&total).Error; err != nil {
		return Page[T]{}, apperr.FromStore(err, "page")
	}

	out := Page[T]{
		Items:       []T{},
		TotalCount:  total,
		TotalPages:  TotalPages(total, req.Size),
		CurrentPage: req.Page,
		PageSize:    req.Size,
	}
	// Past the last page. The offset is only computed below this point,
	// where (page-1)*size < total and cannot overflow.
	if req.Page > out.TotalPages {
		return out, nil
	}

	q := db.Model(new(T)).Scopes(scope)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	for _, lead := range spec.Leading {
		q = q.Order(lead)
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: dir == Desc})
	if spec.TieBreak != "" && spec.TieBreak != col {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: spec.TieBreak}, Desc: dir == Desc})
	}

	if err := q.Limit(req.Size).Offset(req.Offset()).Find(&out.Items).Error; err != nil {
		return Page[T]{}, apperr.FromStore(err, "page")
	}
	return out, nil
}

// MapPage converts the items of a page, keeping its metadata.
func MapPage[T, U any](p Page[T], f func(T) U) Page[U] {
	out := Page[U]{
		Items:       make([]U, len(p.Items)),
		TotalCount:  p.TotalCount,
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
		PageSize:    p.PageSize,
	}
	for i, it := range p.Items {
		out.Items[i] = f(it)
	}
	return out
}

var (
	articleSort = SortSpec{
		Fields: map[string]string{
			"id":        "id",
			"postedAt":  "posted_at",
			"posted_at": "posted_at",
			"title":     "title",
			"likes":     "like_count",
			"comments":  "comment_count",
		},
		Default:  "postedAt",
		TieBreak: "id",
	}
	pinnedArticleSort = withLeading(articleSort, "pinned DESC")

	commentSort = SortSpec{
		Fields: map[string]string{
			"id":        "id",
			"postedAt":  "posted_at",
			"posted_at": "posted_at",
			"likes":     "like_count",
		},
		Default:  "postedAt",
		Leading:  []string{"pinned DESC"},
		TieBreak: "id",
	}

	followSort = SortSpec{
		Fields:   map[string]string{"id": "id", "createdAt": "created_at", "created_at": "created_at"},
		Default:  "createdAt",
		TieBreak: "id",
	}

	notificationSort = SortSpec{
		Fields:   map[string]string{"id": "id", "createdAt": "created_at", "created_at": "created_at"},
		Default:  "createdAt",
		TieBreak: "id",
	}
)

func withLeading(s SortSpec, leading ...string) SortSpec {
	s.Leading = append(append([]string{}, s.Leading...), leading...)
	return s
}

func (s SortSpec) withoutLeading() SortSpec {
	s.Leading = nil
	return s
}
