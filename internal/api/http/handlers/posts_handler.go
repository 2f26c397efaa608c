package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-api/internal/api/dto"
	"github.com/spec-kit/blog-api/internal/service"
)

// PostsHandler manages post endpoints.
type PostsHandler struct {
	posts    *service.PostService
	comments *service.CommentService
}

// NewPostsHandler constructs handler.
func NewPostsHandler(posts *service.PostService, comments *service.CommentService) *PostsHandler {
	return &PostsHandler{posts: posts, comments: comments}
}

// Create POST /api/posts/new.
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	author, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.PostRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := h.posts.Create(c.UserContext(), author, postInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Get GET /api/posts/:id.
func (h *PostsHandler) Get(c *fiber.Ctx) error {
	post, err := h.posts.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// List GET /api/posts?page=&size=.
func (h *PostsHandler) List(c *fiber.Ctx) error {
	page, err := h.posts.List(c.UserContext(), c.QueryInt("page", 0), c.QueryInt("size", service.DefaultPageSize))
	if err != nil {
		return err
	}

	items := make([]dto.PostResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewPostResponse(&page.Items[i]))
	}
	totalPages := 0
	if page.Size > 0 {
		totalPages = (page.Total + page.Size - 1) / page.Size
	}
	return c.JSON(fiber.Map{"data": dto.PostPageResponse{
		Items:      items,
		Page:       page.Page,
		Size:       page.Size,
		Total:      page.Total,
		TotalPages: totalPages,
	}})
}

// Update PUT /api/posts/:id.
func (h *PostsHandler) Update(c *fiber.Ctx) error {
	author, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.PostRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := h.posts.Update(c.UserContext(), author, c.Params("id"), postInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Delete DELETE /api/posts/:id.
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	author, err := actorID(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.UserContext(), author, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListComments GET /api/posts/:id/comments.
func (h *PostsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.comments.ListByPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func postInput(req dto.PostRequest) service.PostInput {
	return service.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	}
}
