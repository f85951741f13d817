// internal/service/blog/blog_service.go
package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paywall-service/internal/domain/blog"
	"paywall-service/internal/domain/entitlement"
	xerrors "paywall-service/internal/pkg/errors"
	"paywall-service/internal/pkg/splitter"

	"go.uber.org/zap"
)

type PostRepository interface {
	FindByID(ctx context.Context, id string) (*blog.Post, error)
	FindBySlug(ctx context.Context, slug string) (*blog.Post, error)
	Publish(ctx context.Context, p *blog.Post) error
}

type AccessChecker interface {
	HasAccess(ctx context.Context, userID *int64, target entitlement.Target) (bool, error)
}

type BlogService struct {
	repo      PostRepository
	access    AccessChecker
	threshold int
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*BlogService)

func WithClock(now func() time.Time) Option {
	return func(s *BlogService) { s.now = now }
}

// WithPremiumThreshold overrides the rating above which posts are gated.
func WithPremiumThreshold(threshold int) Option {
	return func(s *BlogService) { s.threshold = threshold }
}

func NewBlogService(repo PostRepository, access AccessChecker, logger *zap.Logger, opts ...Option) *BlogService {
	s := &BlogService{
		repo:      repo,
		access:    access,
		threshold: blog.DefaultPremiumThreshold,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish approves a pending post. Premium posts get their content split once
// here so reads never parse HTML.
func (s *BlogService) Publish(ctx context.Context, id string, adminID int64, req *blog.PublishRequest) (*blog.Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if p.Status != blog.StatusPending {
		return nil, fmt.Errorf("post %s is %s: %w", p.ID, p.Status, xerrors.ErrConflict)
	}

	if req.InternalRating != nil {
		if *req.InternalRating < 1 || *req.InternalRating > 10 {
			return nil, xerrors.Invalid("internal_rating must be between 1 and 10")
		}
		p.InternalRating = req.InternalRating
	}
	if req.SectionID != nil {
		p.SectionID = trimmed(*req.SectionID)
	}
	if req.SubsectionID != nil {
		p.SubsectionID = trimmed(*req.SubsectionID)
	}

	p.ContentPart1HTML, p.ContentPart2HTML = "", ""
	if p.IsPremium(s.threshold) {
		parts := splitter.Split(p.ContentHTML)
		p.ContentPart1HTML, p.ContentPart2HTML = parts.Part1, parts.Part2
	}

	now := s.now()
	p.ApprovedBy = &adminID
	p.PublishedAt = &now

	if err := s.repo.Publish(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to publish post: %w", err)
	}

	s.logger.Info("post published",
		zap.String("post_id", p.ID),
		zap.Int64("admin_id", adminID),
		zap.Bool("premium", p.IsPremium(s.threshold)),
		zap.Bool("split", p.ContentPart2HTML != ""))

	return p, nil
}

// Read serves a published post to viewer, who may be nil for anonymous
// readers. Without an entitlement a premium post is cut to its first part.
func (s *BlogService) Read(ctx context.Context, slug string, viewer *int64) (*blog.PostView, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if p.Status != blog.StatusPublished {
		return nil, fmt.Errorf("post %s: %w", slug, xerrors.ErrNotFound)
	}

	view := &blog.PostView{
		ID:             p.ID,
		Slug:           p.Slug,
		Title:          p.Title,
		Excerpt:        p.Excerpt,
		SectionID:      p.SectionID,
		SubsectionID:   p.SubsectionID,
		Premium:        p.IsPremium(s.threshold),
		HasEntitlement: true,
		ContentHTML:    p.ContentHTML,
		PublishedAt:    p.PublishedAt,
	}
	if !view.Premium {
		return view, nil
	}

	part1, part2 := p.ContentPart1HTML, p.ContentPart2HTML
	if part1 == "" && part2 == "" {
		// Published while the threshold was higher.
		parts := splitter.Split(p.ContentHTML)
		part1, part2 = parts.Part1, parts.Part2
	}

	allowed, err := s.access.HasAccess(ctx, viewer, entitlement.Target{
		BlogID:       p.ID,
		SectionID:    deref(p.SectionID),
		SubsectionID: deref(p.SubsectionID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check access: %w", err)
	}

	view.HasEntitlement = allowed
	view.ContentPart1HTML = part1
	if allowed {
		view.ContentPart2HTML = part2
		return view, nil
	}
	view.ContentHTML = part1
	return view, nil
}

func trimmed(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
