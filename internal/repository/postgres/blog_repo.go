// internal/repository/postgres/blog_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"paywall-service/internal/domain/blog"
	xerrors "paywall-service/internal/pkg/errors"
)

const postColumns = `
	id, slug, title, excerpt, section_id, subsection_id, internal_rating, status,
	content_html, content_part1_html, content_part2_html, approved_by, published_at,
	created_at, updated_at`

// BlogRepository reads and publishes posts owned by the blog service.
type BlogRepository struct {
	db *DB
}

func NewBlogRepository(db *DB) *BlogRepository {
	return &BlogRepository{db: db}
}

func scanPost(row rowScanner) (*blog.Post, error) {
	var p blog.Post
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.SectionID, &p.SubsectionID, &p.InternalRating, &p.Status,
		&p.ContentHTML, &p.ContentPart1HTML, &p.ContentPart2HTML, &p.ApprovedBy, &p.PublishedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BlogRepository) FindByID(ctx context.Context, id string) (*blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE id = $1`

	p, err := scanPost(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "find post")
	}
	return p, nil
}

func (r *BlogRepository) FindBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE slug = $1`

	p, err := scanPost(r.db.conn(ctx).QueryRow(ctx, query, slug))
	if err != nil {
		return nil, translate(err, "find post by slug")
	}
	return p, nil
}

// Publish stores the approval fields of p, including the split content.
// Only a PENDING post can be published; anything else is ErrConflict.
func (r *BlogRepository) Publish(ctx context.Context, p *blog.Post) error {
	query := `
		UPDATE blog_posts
		SET status = $1, internal_rating = $2, section_id = $3, subsection_id = $4,
		    content_part1_html = $5, content_part2_html = $6,
		    approved_by = $7, published_at = $8, updated_at = $9
		WHERE id = $10 AND status = $11
		RETURNING updated_at
	`

	err := r.db.conn(ctx).QueryRow(
		ctx, query,
		blog.StatusPublished, p.InternalRating, p.SectionID, p.SubsectionID,
		p.ContentPart1HTML, p.ContentPart2HTML,
		p.ApprovedBy, p.PublishedAt, time.Now(), p.ID, blog.StatusPending,
	).Scan(&p.UpdatedAt)
	if err != nil {
		err = translate(err, "publish post")
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return fmt.Errorf("post %s is not pending: %w", p.ID, xerrors.ErrConflict)
		}
		return err
	}
	p.Status = blog.StatusPublished
	return nil
}
