package blog

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paywall-service/internal/domain/blog"
	"paywall-service/internal/middleware"
	xerrors "paywall-service/internal/pkg/errors"
	"paywall-service/internal/pkg/jwt"
	"paywall-service/internal/pkg/jwt/jwttest"
)

type stubBlogs struct {
	viewer     *int64
	readErr    error
	publishReq *blog.PublishRequest
	publishErr error
	adminID    int64
}

func (s *stubBlogs) Read(_ context.Context, slug string, viewer *int64) (*blog.PostView, error) {
	s.viewer = viewer
	if s.readErr != nil {
		return nil, s.readErr
	}
	return &blog.PostView{Slug: slug, HasEntitlement: viewer != nil}, nil
}

func (s *stubBlogs) Publish(_ context.Context, id string, adminID int64, req *blog.PublishRequest) (*blog.Post, error) {
	s.adminID, s.publishReq = adminID, req
	if s.publishErr != nil {
		return nil, s.publishErr
	}
	return &blog.Post{ID: id, Status: blog.StatusPublished}, nil
}

type fixture struct {
	router *gin.Engine
	blogs  *stubBlogs
	keys   *jwttest.Keys
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys := jwttest.NewKeys(t)
	auth := middleware.NewAuthMiddleware(keys.Verifier)
	blogs := &stubBlogs{}
	h := NewBlogHandler(blogs)

	r := gin.New()
	r.GET("/blogs/:slug", auth.OptionalAuth(), h.GetBlog)
	r.POST("/admin/blogs/:id/publish", append(auth.AdminOnly(), h.PublishBlog)...)
	return &fixture{router: r, blogs: blogs, keys: keys}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetBlog(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/blogs/hello", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, f.blogs.viewer)
	assert.Contains(t, w.Body.String(), `"has_entitlement":false`)

	w = f.do(http.MethodGet, "/blogs/hello", f.keys.AccessToken(t, 3), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.blogs.viewer)
	assert.Equal(t, int64(3), *f.blogs.viewer)

	f.blogs.readErr = xerrors.ErrNotFound
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/blogs/draft", "", "").Code)
}

func TestPublishBlog(t *testing.T) {
	f := newFixture(t)
	admin := f.keys.AccessToken(t, 1, jwt.RoleAdmin)

	w := f.do(http.MethodPost, "/admin/blogs/b1/publish", admin, `{"internal_rating":8,"section_id":"tech"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), f.blogs.adminID)
	assert.Equal(t, 8, *f.blogs.publishReq.InternalRating)
	assert.Equal(t, "tech", *f.blogs.publishReq.SectionID)

	w = f.do(http.MethodPost, "/admin/blogs/b1/publish", admin, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, f.blogs.publishReq.InternalRating)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/admin/blogs/b1/publish", admin, `{"internal_rating":11}`).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/admin/blogs/b1/publish", f.keys.AccessToken(t, 2), `{}`).Code)

	f.blogs.publishErr = xerrors.ErrConflict
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/admin/blogs/b1/publish", admin, `{}`).Code)
}
