package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/clock"
	"github.com/spec-kit/blog-api/internal/domain"
	"github.com/spec-kit/blog-api/internal/events"
	"github.com/spec-kit/blog-api/internal/repository"
	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

// CommentService manages comments on posts.
type CommentService struct {
	comments   repository.CommentRepository
	posts      *PostService
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// NewCommentService wires dependencies.
func NewCommentService(comments repository.CommentRepository, posts *PostService, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger) *CommentService {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{comments: comments, posts: posts, dispatcher: dispatcher, clock: clk, logger: logger}
}

// Create attaches a comment by authorID to an existing post.
func (s *CommentService) Create(ctx context.Context, authorID, postID, content string) (*domain.Comment, error) {
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{PostID: postID, AuthorID: authorID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("comment created", zap.String("comment_id", comment.ID), zap.String("post_id", postID))
	s.publish(ctx, events.EventCommentCreated, authorID, comment)
	return comment, nil
}

// ListByPost returns the comments of a post in creation order.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// Update changes the content of a comment owned by actorID.
func (s *CommentService) Update(ctx context.Context, actorID, id, content string) (*domain.Comment, error) {
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}
	comment, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventCommentUpdated, actorID, comment)
	return comment, nil
}

// Delete removes a comment owned by actorID.
func (s *CommentService) Delete(ctx context.Context, actorID, id string) error {
	comment, err := s.owned(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	s.logger.Info("comment deleted", zap.String("comment_id", id))
	s.publish(ctx, events.EventCommentDeleted, actorID, comment)
	return nil
}

func (s *CommentService) owned(ctx context.Context, actorID, id string) (*domain.Comment, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("comment", map[string]any{"id": id})
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("comment", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if comment.AuthorID != actorID {
		s.logger.Warn("comment change by non-author", zap.String("comment_id", id), zap.String("actor_id", actorID))
		return nil, apperrors.NewForbidden("only the author may modify this comment")
	}
	return comment, nil
}

func (s *CommentService) publish(ctx context.Context, eventType events.EventType, accountID string, comment *domain.Comment) {
	if s.dispatcher == nil {
		return
	}
	payload := events.CommentPayload{CommentID: comment.ID, PostID: comment.PostID}
	if err := s.dispatcher.Publish(ctx, events.New(eventType, accountID, "", s.clock.Now(), payload)); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func validateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperrors.NewInvalidRequestData("invalid comment data", map[string]any{"content": "must not be blank"})
	}
	return nil
}
