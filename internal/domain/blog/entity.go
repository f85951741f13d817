// internal/domain/blog/entity.go
package blog

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	StatusRejected  Status = "REJECTED"
)

// DefaultPremiumThreshold is the rating above which a post is gated.
const DefaultPremiumThreshold = 6

// Post is the slice of a blog post the paywall needs. Authoring and listing
// live elsewhere.
type Post struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Excerpt          string     `json:"excerpt,omitempty"`
	SectionID        *string    `json:"section_id,omitempty"`
	SubsectionID     *string    `json:"subsection_id,omitempty"`
	InternalRating   *int       `json:"internal_rating,omitempty"`
	Status           Status     `json:"status"`
	ContentHTML      string     `json:"content_html"`
	ContentPart1HTML string     `json:"content_part1_html,omitempty"`
	ContentPart2HTML string     `json:"content_part2_html,omitempty"`
	ApprovedBy       *int64     `json:"approved_by,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsPremium reports whether the post's rating puts it behind the paywall.
func (p *Post) IsPremium(threshold int) bool {
	return p.InternalRating != nil && *p.InternalRating > threshold
}
