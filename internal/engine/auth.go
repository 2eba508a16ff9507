package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"janvaani/internal/domain"
	"janvaani/internal/events"
	"janvaani/internal/repo"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterOptions struct {
	Role     string
	Name     string
	Email    string
	Password string
	Ward     string
}

func (e Engine) Register(ctx context.Context, opts RegisterOptions) (domain.User, string, error) {
	if opts.Role != domain.RoleCitizen && opts.Role != domain.RoleAdmin {
		return domain.User{}, "", errors.New("invalid role")
	}
	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	if opts.Name == "" || opts.Email == "" {
		return domain.User{}, "", errors.New("name and email required")
	}
	if len(opts.Password) < 6 {
		return domain.User{}, "", errors.New("password must be at least 6 characters")
	}
	if _, _, err := e.Repo.GetUserByEmail(ctx, opts.Email); err == nil {
		return domain.User{}, "", errors.New("email already registered")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, "", err
	}
	u := domain.User{
		ID:        uuid.New().String(),
		Role:      opts.Role,
		Name:      opts.Name,
		Email:     opts.Email,
		Ward:      opts.Ward,
		Tier:      domain.TierForScore(0),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertUser(ctx, u, string(hash)); err != nil {
		return domain.User{}, "", err
	}
	token, err := e.IssueToken(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

func (e Engine) Login(ctx context.Context, role, email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, hash, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, "", ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if role != "" && u.Role != role {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := e.IssueToken(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// IssueToken mints an HS256 bearer token for the user.
func (e Engine) IssueToken(u domain.User) (string, error) {
	if e.Config == nil || strings.TrimSpace(e.Config.Auth.JWTSecret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := e.now().UTC()
	ttl := time.Duration(e.Config.Auth.TokenTTLHours) * time.Hour
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": u.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(e.Config.Auth.JWTSecret))
}

// ForgotPassword issues a one-time reset token. The raw token is returned to
// the caller; only its hash is stored.
func (e Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, _, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("no account for that email: %w", repo.ErrNotFound)
		}
		return "", err
	}
	token := repo.NewResetToken()
	if err := e.Repo.InsertResetToken(ctx, u.ID, repo.HashResetToken(token), e.now().Add(time.Hour)); err != nil {
		return "", err
	}
	return token, nil
}

func (e Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	userID, err := e.Repo.ConsumeResetToken(ctx, repo.HashResetToken(token), e.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errors.New("invalid reset token")
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return e.Repo.SetPasswordHash(ctx, userID, string(hash))
}

func (e Engine) ChangePassword(ctx context.Context, userID, current, next string) error {
	hash, err := e.Repo.GetPasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
		return errors.New("current password incorrect")
	}
	if len(next) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := e.Repo.SetPasswordHash(ctx, userID, string(newHash)); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "user.password.changed", "user", userID, userID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}
