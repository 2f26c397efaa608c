package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-api/internal/api/dto"
	"github.com/spec-kit/blog-api/internal/service"
)

// CommentsHandler manages comment endpoints.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(comments *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: comments}
}

// Create POST /api/comments/new.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	author, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.CommentCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Create(c.UserContext(), author, req.PostID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Update PUT /api/comments/:id.
func (h *CommentsHandler) Update(c *fiber.Ctx) error {
	author, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.CommentUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Update(c.UserContext(), author, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Delete DELETE /api/comments/:id.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	author, err := actorID(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), author, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
