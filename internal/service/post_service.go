package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/clock"
	"github.com/spec-kit/blog-api/internal/domain"
	"github.com/spec-kit/blog-api/internal/events"
	"github.com/spec-kit/blog-api/internal/repository"
	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title    string
	Content  string
	ImageURL *string
}

// PostPage is one page of the post listing.
type PostPage struct {
	Items []domain.Post
	Page  int
	Size  int
	Total int
}

// PostService manages blog posts. Only the author may change or remove a post.
type PostService struct {
	posts      repository.PostRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// NewPostService wires dependencies.
func NewPostService(posts repository.PostRepository, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger) *PostService {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{posts: posts, dispatcher: dispatcher, clock: clk, logger: logger}
}

// Create stores a new post authored by authorID.
func (s *PostService) Create(ctx context.Context, authorID string, input PostInput) (*domain.Post, error) {
	if err := validatePostInput(input); err != nil {
		return nil, err
	}
	post := &domain.Post{
		AuthorID: authorID,
		Title:    strings.TrimSpace(input.Title),
		Content:  input.Content,
		ImageURL: input.ImageURL,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("post created", zap.String("post_id", post.ID), zap.String("author_id", authorID))
	s.publish(ctx, events.EventPostCreated, authorID, events.PostPayload{PostID: post.ID, Title: post.Title})
	return post, nil
}

// Get loads a post by id.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return post, nil
}

// List returns a zero-based page of posts, newest first.
func (s *PostService) List(ctx context.Context, page, size int) (*PostPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	items, total, err := s.posts.List(ctx, repository.PostFilter{Limit: size, Offset: page * size})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Post{}
	}
	return &PostPage{Items: items, Page: page, Size: size, Total: total}, nil
}

// Update replaces title, content and image of a post owned by actorID.
func (s *PostService) Update(ctx context.Context, actorID, id string, input PostInput) (*domain.Post, error) {
	if err := validatePostInput(input); err != nil {
		return nil, err
	}
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		s.logger.Warn("post update by non-author", zap.String("post_id", id), zap.String("actor_id", actorID))
		return nil, apperrors.NewForbidden("only the author may modify this post")
	}

	post.Title = strings.TrimSpace(input.Title)
	post.Content = input.Content
	post.ImageURL = input.ImageURL
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventPostUpdated, actorID, events.PostPayload{PostID: post.ID, Title: post.Title})
	return post, nil
}

// Delete removes a post owned by actorID along with its comments.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		s.logger.Warn("post delete by non-author", zap.String("post_id", id), zap.String("actor_id", actorID))
		return apperrors.NewForbidden("only the author may delete this post")
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("post", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	s.logger.Info("post deleted", zap.String("post_id", id))
	s.publish(ctx, events.EventPostDeleted, actorID, events.PostPayload{PostID: id})
	return nil
}

func (s *PostService) publish(ctx context.Context, eventType events.EventType, accountID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.New(eventType, accountID, "", s.clock.Now(), payload)); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func validatePostInput(input PostInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "must not be blank"
	}
	if strings.TrimSpace(input.Content) == "" {
		details["content"] = "must not be blank"
	}
	if len(details) > 0 {
		return apperrors.NewInvalidRequestData("invalid post data", details)
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
