package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/middleware"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/services"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// BlogHandler exposes blog post CRUD. Write access is enforced by permission
// middleware on the routes; drafts are only listed for callers holding the
// update permission.
type BlogHandler struct {
	posts *services.BlogService
}

func NewBlogHandler(posts *services.BlogService) *BlogHandler {
	return &BlogHandler{posts: posts}
}

type blogPostRequest struct {
	Title   string   `json:"title" validate:"max=200"`
	Excerpt string   `json:"excerpt" validate:"max=500"`
	Content string   `json:"content"`
	Tags    []string `json:"tags" validate:"max=16,dive,max=32"`
	Publish bool     `json:"publish"`
}

// POST /api/blog
func (h *BlogHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req blogPostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.posts.Create(requestContext(c), identity.UserID, services.BlogPostInput{
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Content: req.Content,
		Tags:    req.Tags,
		Publish: req.Publish,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, blogPostPayload(post))
}

// GET /api/blog
func (h *BlogHandler) List(c *gin.Context) {
	// Listing is public; drafts are only visible to callers that could edit
	// them.
	includeDrafts := false
	if identity, ok := middleware.IdentityFromContext(c); ok && identity.HasPermission("post.edit") {
		includeDrafts = c.Query("include_drafts") == "true"
	}

	posts, err := h.posts.List(requestContext(c), includeDrafts)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, blogPostPayload(&posts[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"posts": items})
}

// GET /api/blog/:slug
func (h *BlogHandler) Get(c *gin.Context) {
	post, err := h.posts.GetBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, blogPostPayload(post))
}

// PUT /api/blog/:slug
func (h *BlogHandler) Update(c *gin.Context) {
	var req blogPostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.posts.Update(requestContext(c), c.Param("slug"), services.BlogPostInput{
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Content: req.Content,
		Tags:    req.Tags,
		Publish: req.Publish,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, blogPostPayload(post))
}

// DELETE /api/blog/:slug
func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(requestContext(c), c.Param("slug")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Post deleted"})
}

func blogPostPayload(post *models.BlogPost) gin.H {
	payload := gin.H{
		"id":           post.ID,
		"slug":         post.Slug,
		"title":        post.Title,
		"excerpt":      post.Excerpt,
		"content":      post.Content,
		"tags":         []string(post.Tags),
		"is_published": post.IsPublished,
		"published_at": post.PublishedAt,
		"created_at":   post.CreatedAt,
		"updated_at":   post.UpdatedAt,
	}
	if post.Author != nil {
		payload["author"] = gin.H{
			"id":       post.Author.ID,
			"username": post.Author.Username,
		}
	}
	return payload
}
