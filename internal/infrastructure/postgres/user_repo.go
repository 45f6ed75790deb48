package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socraticschool/accounts/internal/domain"
)

const userColumns = `id, email, username, password_hash, first_name, last_name,
       nationality, age, role, email_verified,
       verification_token, verification_token_expires,
       reset_token, reset_token_expires,
       created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, username, password_hash, first_name,
		                   last_name, nationality, age, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Nationality,
		u.Age,
		u.Role,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return nil, domain.ErrUsernameTaken
			}
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, identifier))
}

func (r *UserRepository) IssueVerificationToken(ctx context.Context, userID, tok string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    verification_token         = $2,
		       verification_token_expires = $3,
		       updated_at                 = NOW()
		WHERE  id = $1`,
		userID, tok, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindByVerificationToken is an exact-string lookup with no expiry
// filter; the caller classifies expiry so that an expired token stays
// distinguishable from one that never existed.
func (r *UserRepository) FindByVerificationToken(ctx context.Context, tok string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, tok))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// ConsumeVerificationToken is the single atomic step of redemption. The
// email_verified IS NULL condition guarantees that of two concurrent
// redemptions exactly one observes rows affected.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    email_verified             = NOW(),
		       verification_token         = NULL,
		       verification_token_expires = NULL,
		       updated_at                 = NOW()
		WHERE  id = $1
		  AND  email_verified IS NULL`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("consume verification token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) ClearVerificationToken(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    verification_token         = NULL,
		       verification_token_expires = NULL,
		       updated_at                 = NOW()
		WHERE  id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("clear verification token: %w", err)
	}
	return nil
}

func (r *UserRepository) IssueResetToken(ctx context.Context, userID, tok string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    reset_token         = $2,
		       reset_token_expires = $3,
		       updated_at          = NOW()
		WHERE  id = $1`,
		userID, tok, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tok string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, tok))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// ConsumeResetToken re-checks expiry inside the update: the token may
// expire between match and consume, and there is no idempotent terminal
// state to absorb that race.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID, newPasswordHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    password_hash       = $2,
		       reset_token         = NULL,
		       reset_token_expires = NULL,
		       updated_at          = NOW()
		WHERE  id = $1
		  AND  reset_token IS NOT NULL
		  AND  reset_token_expires > NOW()`,
		userID, newPasswordHash,
	)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    reset_token         = NULL,
		       reset_token_expires = NULL,
		       updated_at          = NOW()
		WHERE  id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearExpiredTokens(ctx context.Context) (int64, int64, error) {
	vTag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    verification_token         = NULL,
		       verification_token_expires = NULL,
		       updated_at                 = NOW()
		WHERE  verification_token IS NOT NULL
		  AND  verification_token_expires <= NOW()`,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("clear expired verification tokens: %w", err)
	}

	rTag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    reset_token         = NULL,
		       reset_token_expires = NULL,
		       updated_at          = NOW()
		WHERE  reset_token IS NOT NULL
		  AND  reset_token_expires <= NOW()`,
	)
	if err != nil {
		return vTag.RowsAffected(), 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}

	return vTag.RowsAffected(), rTag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Nationality,
		&u.Age,
		&u.Role,
		&u.EmailVerified,
		&u.VerificationToken,
		&u.VerificationTokenExpires,
		&u.ResetToken,
		&u.ResetTokenExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
