package blog

import "time"

type PublishRequest struct {
	InternalRating *int    `json:"internal_rating" binding:"omitempty,min=1,max=10"`
	SectionID      *string `json:"section_id"`
	SubsectionID   *string `json:"subsection_id"`
}

// PostView is a post as served to one viewer. For a gated post without
// entitlement ContentHTML holds only the free part and ContentPart2HTML is empty.
type PostView struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Excerpt          string     `json:"excerpt,omitempty"`
	SectionID        *string    `json:"section_id,omitempty"`
	SubsectionID     *string    `json:"subsection_id,omitempty"`
	Premium          bool       `json:"premium"`
	HasEntitlement   bool       `json:"has_entitlement"`
	ContentHTML      string     `json:"content_html"`
	ContentPart1HTML string     `json:"content_part1_html,omitempty"`
	ContentPart2HTML string     `json:"content_part2_html,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
}
