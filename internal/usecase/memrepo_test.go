package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/socraticschool/accounts/internal/domain"
)

// memRepo is an in-memory UserRepository with the same conditional
// semantics as the SQL implementation. All methods copy on the way out
// so concurrent tests cannot race on shared structs.
type memRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *memRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	r.seq++
	c := *u
	c.ID = fmt.Sprintf("u-%d", r.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.users[c.ID] = &c
	return copyUser(&c), nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findWhere(func(u *domain.User) bool { return u.Email == email })
}

func (r *memRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findWhere(func(u *domain.User) bool { return u.Username == username })
}

func (r *memRepo) FindByEmailOrUsername(_ context.Context, identifier string) (*domain.User, error) {
	return r.findWhere(func(u *domain.User) bool {
		return u.Email == identifier || u.Username == identifier
	})
}

func (r *memRepo) findWhere(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memRepo) IssueVerificationToken(_ context.Context, userID, tok string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.VerificationToken = &tok
	u.VerificationTokenExpires = &expiresAt
	return nil
}

func (r *memRepo) FindByVerificationToken(_ context.Context, tok string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.VerificationToken != nil && *u.VerificationToken == tok {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *memRepo) ConsumeVerificationToken(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.EmailVerified != nil {
		return false, nil
	}
	now := time.Now()
	u.EmailVerified = &now
	u.VerificationToken = nil
	u.VerificationTokenExpires = nil
	return true, nil
}

func (r *memRepo) ClearVerificationToken(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.VerificationToken = nil
		u.VerificationTokenExpires = nil
	}
	return nil
}

func (r *memRepo) IssueResetToken(_ context.Context, userID, tok string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetToken = &tok
	u.ResetTokenExpires = &expiresAt
	return nil
}

func (r *memRepo) FindByResetToken(_ context.Context, tok string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == tok {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *memRepo) ConsumeResetToken(_ context.Context, userID, newPasswordHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.ResetToken == nil || !u.ResetTokenExpires.After(time.Now()) {
		return false, nil
	}
	u.PasswordHash = newPasswordHash
	u.ResetToken = nil
	u.ResetTokenExpires = nil
	return true, nil
}

func (r *memRepo) ClearResetToken(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.ResetToken = nil
		u.ResetTokenExpires = nil
	}
	return nil
}

func (r *memRepo) ClearExpiredTokens(_ context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var verification, reset int64
	now := time.Now()
	for _, u := range r.users {
		if u.VerificationTokenExpires != nil && !u.VerificationTokenExpires.After(now) {
			u.VerificationToken = nil
			u.VerificationTokenExpires = nil
			verification++
		}
		if u.ResetTokenExpires != nil && !u.ResetTokenExpires.After(now) {
			u.ResetToken = nil
			u.ResetTokenExpires = nil
			reset++
		}
	}
	return verification, reset, nil
}

// get returns the live stored record for assertions.
func (r *memRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyUser(r.users[id])
}
