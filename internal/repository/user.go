package repository

import (
	"context"
	"time"

	"github.com/socraticschool/accounts/internal/domain"
)

// UserRepository is the persistence contract for identities and their
// outstanding verification/reset tokens.
//
// The FindBy*Token methods do exact-string lookup with no expiry filter:
// callers classify expiry themselves so that "expired" and "never
// existed" stay distinguishable. The Consume* methods are conditional
// atomic updates and report whether the condition held, which is what
// makes concurrent redemption safe without in-process locks.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByEmailOrUsername resolves the sign-in identifier, which may
	// be either field.
	FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error)

	// IssueVerificationToken overwrites any outstanding verification
	// token on the user. Returns domain.ErrUserNotFound for unknown IDs.
	IssueVerificationToken(ctx context.Context, userID, tok string, expiresAt time.Time) error
	FindByVerificationToken(ctx context.Context, tok string) (*domain.User, error)
	// ConsumeVerificationToken marks the email verified and clears both
	// token fields in one update, conditional on email_verified still
	// being null. Returns false when the condition did not hold (the
	// losing side of a double redemption).
	ConsumeVerificationToken(ctx context.Context, userID string) (bool, error)
	// ClearVerificationToken nulls stale token fields without touching
	// anything else. Best-effort cleanup after an expired match.
	ClearVerificationToken(ctx context.Context, userID string) error

	IssueResetToken(ctx context.Context, userID, tok string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, tok string) (*domain.User, error)
	// ConsumeResetToken sets the new password hash and clears the reset
	// token fields, conditional on the token still being set and not yet
	// expired. Expiry is re-checked here because a reset, unlike a
	// verification, has no terminal "already done" state to fall back on.
	ConsumeResetToken(ctx context.Context, userID, newPasswordHash string) (bool, error)
	ClearResetToken(ctx context.Context, userID string) error

	// ClearExpiredTokens nulls every verification/reset token pair whose
	// expiry has passed. Returns counts of cleared rows per kind.
	ClearExpiredTokens(ctx context.Context) (verification int64, reset int64, err error)
}
