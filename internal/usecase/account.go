package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/socraticschool/accounts/internal/domain"
	"github.com/socraticschool/accounts/internal/repository"
)

const defaultSessionTTL = 30 * 24 * time.Hour

// AccountUsecase covers registration and sign-in. Verification token
// issuance is delegated to the VerificationUsecase so the token
// lifecycle lives in one place.
type AccountUsecase struct {
	users        repository.UserRepository
	verification *VerificationUsecase
	logger       *slog.Logger
	jwtKey       []byte
	sessionTTL   time.Duration
	bcryptCost   int
}

func NewAccountUsecase(users repository.UserRepository, verification *VerificationUsecase, logger *slog.Logger, jwtKey []byte, sessionTTL time.Duration, bcryptCost int) *AccountUsecase {
	if sessionTTL == 0 {
		sessionTTL = defaultSessionTTL
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountUsecase{
		users:        users,
		verification: verification,
		logger:       logger.With("component", "account"),
		jwtKey:       jwtKey,
		sessionTTL:   sessionTTL,
		bcryptCost:   bcryptCost,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Username    string
	Nationality string
	Age         int
	Role        domain.Role
}

// Register creates the account, then issues and emails the verification
// token. The returned bool reports whether the verification email went
// out; a failed send still leaves the account created and the token
// outstanding.
func (u *AccountUsecase) Register(ctx context.Context, in RegisterInput) (*domain.User, bool, error) {
	in.Email = strings.ToLower(in.Email)

	if _, err := u.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, false, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("check email: %w", err)
	}
	if _, err := u.users.FindByUsername(ctx, in.Username); err == nil {
		return nil, false, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, &domain.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Nationality:  in.Nationality,
		Age:          in.Age,
		Role:         in.Role,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	emailSent, err := u.verification.IssueVerification(ctx, user)
	if err != nil {
		// The account exists; surfacing a hard failure here would make
		// the user re-register against a taken email. Report it like a
		// failed send instead.
		u.logger.ErrorContext(ctx, "issue verification token", "user_id", user.ID, "error", err)
		return user, false, nil
	}
	return user, emailSent, nil
}

// Profile loads the user behind an authenticated session.
func (u *AccountUsecase) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return u.users.FindByID(ctx, userID)
}

// SignIn accepts an email or username as identifier and returns a
// signed session JWT carrying the role claim.
func (u *AccountUsecase) SignIn(ctx context.Context, identifier, password string) (string, *domain.User, error) {
	user, err := u.users.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"name":  strings.TrimSpace(user.FirstName + " " + user.LastName),
		"iat":   now.Unix(),
		"exp":   now.Add(u.sessionTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.jwtKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, user, nil
}
