// internal/handlers/blog/blog_handler.go
package blog

import (
	"context"
	"errors"
	"io"
	"net/http"

	"paywall-service/internal/domain/blog"
	"paywall-service/internal/middleware"
	"paywall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type BlogService interface {
	Publish(ctx context.Context, id string, adminID int64, req *blog.PublishRequest) (*blog.Post, error)
	Read(ctx context.Context, slug string, viewer *int64) (*blog.PostView, error)
}

type BlogHandler struct {
	blogs BlogService
}

func NewBlogHandler(blogs BlogService) *BlogHandler {
	return &BlogHandler{blogs: blogs}
}

// GetBlog serves a published post, cut to its free part when the viewer has
// no entitlement.
func (h *BlogHandler) GetBlog(c *gin.Context) {
	view, err := h.blogs.Read(c.Request.Context(), c.Param("slug"), middleware.GetViewer(c))
	if err != nil {
		response.FromError(c, "blog not found", err)
		return
	}

	response.Success(c, http.StatusOK, "blog retrieved", view)
}

// PublishBlog approves a pending post (admin)
func (h *BlogHandler) PublishBlog(c *gin.Context) {
	adminID := middleware.MustGetUserID(c)

	// An empty body publishes with the post's current metadata.
	var req blog.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationError(c, "invalid request", err)
		return
	}

	post, err := h.blogs.Publish(c.Request.Context(), c.Param("id"), adminID, &req)
	if err != nil {
		response.FromError(c, "failed to publish blog", err)
		return
	}

	response.Success(c, http.StatusOK, "blog published", post)
}
