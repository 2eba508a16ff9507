package repo

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"janvaani/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const userColumns = `id,role,name,email,COALESCE(ward,'') AS ward,score,complaints_filed,complaints_resolved,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.Ward, &u.Score, &u.ComplaintsFiled, &u.ComplaintsResolved, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.Tier = domain.TierForScore(u.Score)
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(id,role,name,email,password_hash,ward,score,complaints_filed,complaints_resolved,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Role, u.Name, u.Email, passwordHash, nullable(u.Ward), u.Score, u.ComplaintsFiled, u.ComplaintsResolved, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

// GetUserByEmail also returns the stored password hash for login checks.
func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, string, error) {
	var u domain.User
	var hash string
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,role,name,email,COALESCE(ward,''),score,complaints_filed,complaints_resolved,created_at,password_hash FROM users WHERE email=?`, email).
		Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.Ward, &u.Score, &u.ComplaintsFiled, &u.ComplaintsResolved, &u.CreatedAt, &hash)
	if err == sql.ErrNoRows {
		return u, "", ErrNotFound
	}
	u.Tier = domain.TierForScore(u.Score)
	return u, hash, err
}

func (r Repo) UpdateUserProfile(ctx context.Context, id string, name, ward *string) (domain.User, error) {
	if name != nil {
		if _, err := r.DB.ExecContext(ctx, `UPDATE users SET name=? WHERE id=?`, *name, id); err != nil {
			return domain.User{}, err
		}
	}
	if ward != nil {
		if _, err := r.DB.ExecContext(ctx, `UPDATE users SET ward=? WHERE id=?`, nullable(*ward), id); err != nil {
			return domain.User{}, err
		}
	}
	return r.GetUser(ctx, id)
}

func (r Repo) SetPasswordHash(ctx context.Context, userID, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=?`, userID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return hash, err
}

// AwardScoreTx bumps a user's score and optional counters inside a transaction.
func (r Repo) AwardScoreTx(ctx context.Context, tx *sql.Tx, userID string, points, filedDelta, resolvedDelta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET score=score+?, complaints_filed=complaints_filed+?, complaints_resolved=complaints_resolved+? WHERE id=?`,
		points, filedDelta, resolvedDelta, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListUsers(ctx context.Context, role string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role=?`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// Leaderboard returns the top citizens by score, optionally ward-scoped.
func (r Repo) Leaderboard(ctx context.Context, ward string, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE role=?`
	args := []any{domain.RoleCitizen}
	if ward != "" {
		query += ` AND ward=?`
		args = append(args, ward)
	}
	query += ` ORDER BY score DESC, created_at ASC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// Reset tokens are stored hashed; the raw token is only ever returned once.

func NewResetToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r Repo) InsertResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO reset_tokens(token_hash,user_id,expires_at) VALUES (?,?,?)`,
		tokenHash, userID, expiresAt.UTC().Format(time.RFC3339))
	return err
}

// ConsumeResetToken marks an unexpired, unused token as used and returns its user.
func (r Repo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var userID, expiresAt string
	var usedAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT user_id,expires_at,used_at FROM reset_tokens WHERE token_hash=?`, tokenHash).
		Scan(&userID, &expiresAt, &usedAt)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if usedAt.Valid {
		return "", errors.New("reset token already used")
	}
	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || now.After(exp) {
		return "", errors.New("reset token expired")
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE reset_tokens SET used_at=? WHERE token_hash=?`,
		now.UTC().Format(time.RFC3339), tokenHash)
	return userID, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
