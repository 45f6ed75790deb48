package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/socraticschool/accounts/internal/domain"
	"github.com/socraticschool/accounts/internal/email"
	"github.com/socraticschool/accounts/internal/metrics"
	"github.com/socraticschool/accounts/internal/repository"
	"github.com/socraticschool/accounts/internal/token"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = 1 * time.Hour
)

// VerificationUsecase owns the token lifecycle: issuing verification and
// reset tokens, matching inbound raw tokens against the store, and
// redeeming them.
type VerificationUsecase struct {
	users           repository.UserRepository
	email           email.Sender
	logger          *slog.Logger
	baseURL         string
	verificationTTL time.Duration
	resetTTL        time.Duration
	bcryptCost      int
}

type VerificationOptions struct {
	BaseURL         string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	BcryptCost      int
}

func NewVerificationUsecase(users repository.UserRepository, sender email.Sender, logger *slog.Logger, opts VerificationOptions) *VerificationUsecase {
	if opts.VerificationTTL == 0 {
		opts.VerificationTTL = defaultVerificationTTL
	}
	if opts.ResetTTL == 0 {
		opts.ResetTTL = defaultResetTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &VerificationUsecase{
		users:           users,
		email:           sender,
		logger:          logger.With("component", "verification"),
		baseURL:         opts.BaseURL,
		verificationTTL: opts.VerificationTTL,
		resetTTL:        opts.ResetTTL,
		bcryptCost:      opts.BcryptCost,
	}
}

// IssueVerification generates and stores a verification token for the
// user and emails the link. A failed send does not undo issuance: the
// token is outstanding either way, and the caller can tell the user to
// request a re-send. The returned bool reports whether the email went out.
func (u *VerificationUsecase) IssueVerification(ctx context.Context, user *domain.User) (bool, error) {
	tok, expiresAt, err := u.generateUnique(ctx, u.verificationTTL, u.users.FindByVerificationToken)
	if err != nil {
		return false, err
	}

	if err := u.users.IssueVerificationToken(ctx, user.ID, tok, expiresAt); err != nil {
		return false, fmt.Errorf("store verification token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("verification").Inc()

	link := u.baseURL + "/api/auth/verify-email?token=" + tok
	body := fmt.Sprintf(
		`<p>Welcome to Socratic School.</p>
<p>Please verify your email by clicking the link below:</p>
<p><a href="%s">Verify email</a></p>
<p>This link expires in 24 hours.</p>`,
		link,
	)
	if err := u.email.Send(ctx, user.Email, "Verify your email", body); err != nil {
		u.logger.ErrorContext(ctx, "send verification email",
			"user_id", user.ID, "token_prefix", token.Prefix(tok), "error", err)
		return false, nil
	}
	return true, nil
}

// RequestPasswordReset issues a reset token and emails the link. Unknown
// addresses are a silent no-op so the endpoint cannot be used to probe
// which emails have accounts.
func (u *VerificationUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user by email: %w", err)
	}

	tok, expiresAt, err := u.generateUnique(ctx, u.resetTTL, u.users.FindByResetToken)
	if err != nil {
		return err
	}

	if err := u.users.IssueResetToken(ctx, user.ID, tok, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("reset").Inc()

	link := u.baseURL + "/reset-password?token=" + tok
	body := fmt.Sprintf(
		`<p>A password reset was requested for your account.</p>
<p><a href="%s">Reset password</a></p>
<p>This link expires in 1 hour. If you did not request this, ignore this email.</p>`,
		link,
	)
	if err := u.email.Send(ctx, user.Email, "Reset your password", body); err != nil {
		u.logger.ErrorContext(ctx, "send reset email",
			"user_id", user.ID, "token_prefix", token.Prefix(tok), "error", err)
	}
	return nil
}

// Match resolves a raw inbound token to a verdict. Each canonical form
// is tried in order; the first stored match wins and is classified by
// expiry. An expired match is definitive; later candidates are not
// tried in the hope of a fresher one.
func (u *VerificationUsecase) Match(ctx context.Context, rawToken string) (domain.MatchVerdict, error) {
	return u.matchToken(ctx, rawToken, u.users.FindByVerificationToken, func(user *domain.User) *time.Time {
		return user.VerificationTokenExpires
	})
}

func (u *VerificationUsecase) matchToken(
	ctx context.Context,
	rawToken string,
	find func(context.Context, string) (*domain.User, error),
	expiresOf func(*domain.User) *time.Time,
) (domain.MatchVerdict, error) {
	for i, candidate := range token.Candidates(rawToken) {
		user, err := find(ctx, candidate)
		if err != nil {
			return domain.MatchVerdict{}, fmt.Errorf("find by token: %w", err)
		}
		if user == nil {
			continue
		}
		metrics.NormalizerCandidateHits.WithLabelValues(strconv.Itoa(i)).Inc()

		expiresAt := expiresOf(user)
		if expiresAt == nil || !expiresAt.After(time.Now()) {
			return domain.MatchVerdict{Status: domain.MatchExpired, User: user}, nil
		}
		return domain.MatchVerdict{Status: domain.MatchValid, User: user}, nil
	}
	return domain.MatchVerdict{Status: domain.MatchNotFound}, nil
}

// RedeemVerification runs the full redemption transaction for an
// emailed verification link.
func (u *VerificationUsecase) RedeemVerification(ctx context.Context, rawToken string) (domain.RedemptionResult, error) {
	verdict, err := u.Match(ctx, rawToken)
	if err != nil {
		return domain.RedemptionResult{}, err
	}

	switch verdict.Status {
	case domain.MatchNotFound:
		u.countRedemption("verification", "not_found")
		return domain.RedemptionResult{Outcome: domain.RedemptionNotFound}, nil

	case domain.MatchExpired:
		// Best-effort cleanup; correctness does not depend on it.
		if err := u.users.ClearVerificationToken(ctx, verdict.User.ID); err != nil {
			u.logger.WarnContext(ctx, "clear expired verification token",
				"user_id", verdict.User.ID, "error", err)
		}
		u.countRedemption("verification", "expired")
		return domain.RedemptionResult{Outcome: domain.RedemptionExpired, User: verdict.User}, nil
	}

	if verdict.User.EmailVerified != nil {
		// The token matched but a previous redemption already landed;
		// re-clicking the link is success, not an error.
		u.countRedemption("verification", "already_verified")
		return domain.RedemptionResult{Outcome: domain.RedemptionAlreadyVerified, User: verdict.User}, nil
	}

	applied, err := u.users.ConsumeVerificationToken(ctx, verdict.User.ID)
	if err != nil {
		return domain.RedemptionResult{}, err
	}
	if !applied {
		// Lost the race against a concurrent redemption.
		u.countRedemption("verification", "already_verified")
		return domain.RedemptionResult{Outcome: domain.RedemptionAlreadyVerified, User: verdict.User}, nil
	}

	u.logger.InfoContext(ctx, "email verified",
		"user_id", verdict.User.ID, "token_prefix", token.Prefix(rawToken))
	u.countRedemption("verification", "verified")
	return domain.RedemptionResult{Outcome: domain.RedemptionVerified, User: verdict.User}, nil
}

// RedeemReset matches a reset token and, if valid, sets the new
// password. Expiry is enforced again inside the consume, so a token
// that expires between match and consume comes back Expired rather
// than changing the password.
func (u *VerificationUsecase) RedeemReset(ctx context.Context, rawToken, newPassword string) (domain.ResetResult, error) {
	verdict, err := u.matchToken(ctx, rawToken, u.users.FindByResetToken, func(user *domain.User) *time.Time {
		return user.ResetTokenExpires
	})
	if err != nil {
		return domain.ResetResult{}, err
	}

	switch verdict.Status {
	case domain.MatchNotFound:
		u.countRedemption("reset", "not_found")
		return domain.ResetResult{Outcome: domain.ResetNotFound}, nil

	case domain.MatchExpired:
		if err := u.users.ClearResetToken(ctx, verdict.User.ID); err != nil {
			u.logger.WarnContext(ctx, "clear expired reset token",
				"user_id", verdict.User.ID, "error", err)
		}
		u.countRedemption("reset", "expired")
		return domain.ResetResult{Outcome: domain.ResetExpired, User: verdict.User}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), u.bcryptCost)
	if err != nil {
		return domain.ResetResult{}, fmt.Errorf("hash password: %w", err)
	}

	applied, err := u.users.ConsumeResetToken(ctx, verdict.User.ID, string(hash))
	if err != nil {
		return domain.ResetResult{}, err
	}
	if !applied {
		u.countRedemption("reset", "expired")
		return domain.ResetResult{Outcome: domain.ResetExpired, User: verdict.User}, nil
	}

	u.logger.InfoContext(ctx, "password reset",
		"user_id", verdict.User.ID, "token_prefix", token.Prefix(rawToken))
	u.countRedemption("reset", "applied")
	return domain.ResetResult{Outcome: domain.ResetApplied, User: verdict.User}, nil
}

// generateUnique probes the store for an existing owner of a freshly
// generated token. A hit means the random source is suspect: retry
// exactly once, then fail loudly rather than mask it.
func (u *VerificationUsecase) generateUnique(
	ctx context.Context,
	ttl time.Duration,
	find func(context.Context, string) (*domain.User, error),
) (string, time.Time, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tok, expiresAt := token.Generate(ttl)
		owner, err := find(ctx, tok)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("collision probe: %w", err)
		}
		if owner == nil {
			return tok, expiresAt, nil
		}
		u.logger.ErrorContext(ctx, "generated token already exists",
			"token_prefix", token.Prefix(tok), "attempt", attempt)
	}
	return "", time.Time{}, domain.ErrTokenCollision
}

func (u *VerificationUsecase) countRedemption(kind, outcome string) {
	metrics.RedemptionsTotal.WithLabelValues(kind, outcome).Inc()
}
