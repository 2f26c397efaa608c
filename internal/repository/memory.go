package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/blog-api/internal/domain"
)

// MemoryStore keeps accounts, posts and comments in process memory. It backs
// the API when no POSTGRES_DSN is configured and mirrors the Postgres
// repositories' contracts, including pgx.ErrNoRows on misses.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	accounts map[string]domain.Account
	posts    map[string]memoryRow[domain.Post]
	comments map[string]memoryRow[domain.Comment]
}

type memoryRow[T any] struct {
	seq int64
	val T
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]domain.Account),
		posts:    make(map[string]memoryRow[domain.Post]),
		comments: make(map[string]memoryRow[domain.Comment]),
	}
}

// Accounts returns the account repository view.
func (m *MemoryStore) Accounts() AccountRepository { return memoryAccounts{m} }

// Posts returns the post repository view.
func (m *MemoryStore) Posts() PostRepository { return memoryPosts{m} }

// Comments returns the comment repository view.
func (m *MemoryStore) Comments() CommentRepository { return memoryComments{m} }

func (m *MemoryStore) next() int64 {
	m.seq++
	return m.seq
}

type memoryAccounts struct{ m *MemoryStore }

func (r memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.accounts {
		if existing.Email == account.Email {
			return ErrDuplicate
		}
	}
	account.ID = uuid.NewString()
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	r.m.accounts[account.ID] = *account
	return nil
}

func (r memoryAccounts) SaveTokens(_ context.Context, account *domain.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.accounts[account.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.AccessToken = account.AccessToken
	stored.AccessTokenExpiresAt = account.AccessTokenExpiresAt
	stored.RefreshToken = account.RefreshToken
	stored.RefreshTokenExpiresAt = account.RefreshTokenExpiresAt
	stored.UpdatedAt = time.Now().UTC()
	r.m.accounts[account.ID] = stored
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memoryAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	account, ok := r.m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &account, nil
}

func (r memoryAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, account := range r.m.accounts {
		if account.Email == email {
			return &account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memoryAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

type memoryPosts struct{ m *MemoryStore }

func (r memoryPosts) Create(_ context.Context, post *domain.Post) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	r.m.posts[post.ID] = memoryRow[domain.Post]{seq: r.m.next(), val: *post}
	return nil
}

func (r memoryPosts) Update(_ context.Context, post *domain.Post) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.posts[post.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	post.UpdatedAt = time.Now().UTC()
	row.val = *post
	r.m.posts[post.ID] = row
	return nil
}

func (r memoryPosts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	post := row.val
	return &post, nil
}

func (r memoryPosts) List(_ context.Context, filter PostFilter) ([]domain.Post, int, error) {
	r.m.mu.RLock()
	rows := make([]memoryRow[domain.Post], 0, len(r.m.posts))
	for _, row := range r.m.posts {
		if filter.AuthorID != nil && row.val.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.SearchTerm != nil && !matchesSearch(row.val, *filter.SearchTerm) {
			continue
		}
		rows = append(rows, row)
	}
	r.m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	total := len(rows)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	posts := make([]domain.Post, 0, end-offset)
	for _, row := range rows[offset:end] {
		posts = append(posts, row.val)
	}
	return posts, total, nil
}

func (r memoryPosts) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.posts[id]; !ok {
		return pgx.ErrNoRows
	}
	for commentID, row := range r.m.comments {
		if row.val.PostID == id {
			delete(r.m.comments, commentID)
		}
	}
	delete(r.m.posts, id)
	return nil
}

func matchesSearch(post domain.Post, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(post.Title), term) || strings.Contains(strings.ToLower(post.Content), term)
}

type memoryComments struct{ m *MemoryStore }

func (r memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	comment.UpdatedAt = comment.CreatedAt
	r.m.comments[comment.ID] = memoryRow[domain.Comment]{seq: r.m.next(), val: *comment}
	return nil
}

func (r memoryComments) Update(_ context.Context, comment *domain.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.comments[comment.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	comment.UpdatedAt = time.Now().UTC()
	row.val = *comment
	r.m.comments[comment.ID] = row
	return nil
}

func (r memoryComments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	comment := row.val
	return &comment, nil
}

func (r memoryComments) ListByPost(_ context.Context, postID string) ([]domain.Comment, error) {
	r.m.mu.RLock()
	rows := make([]memoryRow[domain.Comment], 0)
	for _, row := range r.m.comments {
		if row.val.PostID == postID {
			rows = append(rows, row)
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	comments := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.val)
	}
	return comments, nil
}

func (r memoryComments) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.m.comments, id)
	return nil
}
