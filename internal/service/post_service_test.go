package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-api/internal/clock"
	"github.com/spec-kit/blog-api/internal/events"
	"github.com/spec-kit/blog-api/internal/repository"
	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

type contentFixture struct {
	posts      *PostService
	comments   *CommentService
	store      *repository.MemoryStore
	dispatcher *recordingDispatcher
}

func newContentFixture() *contentFixture {
	store := repository.NewMemoryStore()
	dispatcher := &recordingDispatcher{}
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	posts := NewPostService(store.Posts(), dispatcher, clk, nil)
	return &contentFixture{
		posts:      posts,
		comments:   NewCommentService(store.Comments(), posts, dispatcher, clk, nil),
		store:      store,
		dispatcher: dispatcher,
	}
}

func TestPostService_CreateAndGet(t *testing.T) {
	f := newContentFixture()
	author := uuid.NewString()

	post, err := f.posts.Create(context.Background(), author, PostInput{Title: "  Hello ", Content: "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, author, post.AuthorID)

	got, err := f.posts.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, []events.EventType{events.EventPostCreated}, f.dispatcher.types())
}

func TestPostService_CreateValidation(t *testing.T) {
	f := newContentFixture()

	_, err := f.posts.Create(context.Background(), uuid.NewString(), PostInput{Title: " ", Content: ""})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInvalidRequestData, domainErr.Code)
	assert.Contains(t, domainErr.Details, "title")
	assert.Contains(t, domainErr.Details, "content")
}

func TestPostService_GetMissing(t *testing.T) {
	f := newContentFixture()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err := f.posts.Get(context.Background(), id)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), id)
	}
}

func TestPostService_ListPaginates(t *testing.T) {
	f := newContentFixture()
	author := uuid.NewString()
	for i := 0; i < 5; i++ {
		_, err := f.posts.Create(context.Background(), author, PostInput{Title: "t", Content: "c"})
		require.NoError(t, err)
	}

	page, err := f.posts.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 1, page.Page)

	page, err = f.posts.List(context.Background(), 9, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, DefaultPageSize, page.Size)

	page, err = f.posts.List(context.Background(), -1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, MaxPageSize, page.Size)
}

func TestPostService_OnlyAuthorMayMutate(t *testing.T) {
	f := newContentFixture()
	author, stranger := uuid.NewString(), uuid.NewString()

	post, err := f.posts.Create(context.Background(), author, PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = f.posts.Update(context.Background(), stranger, post.ID, PostInput{Title: "x", Content: "y"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	err = f.posts.Delete(context.Background(), stranger, post.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	updated, err := f.posts.Update(context.Background(), author, post.ID, PostInput{Title: "x", Content: "y"})
	require.NoError(t, err)
	assert.Equal(t, "x", updated.Title)
}

func TestPostService_DeleteCascadesComments(t *testing.T) {
	f := newContentFixture()
	author, reader := uuid.NewString(), uuid.NewString()

	post, err := f.posts.Create(context.Background(), author, PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)
	_, err = f.comments.Create(context.Background(), reader, post.ID, "nice")
	require.NoError(t, err)

	require.NoError(t, f.posts.Delete(context.Background(), author, post.ID))

	_, err = f.posts.Get(context.Background(), post.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	remaining, err := f.store.Comments().ListByPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
