package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"janvaani/internal/domain"
)

const complaintColumns = `id,ref_id,owner_id,title,COALESCE(description,''),category,priority,status,COALESCE(ward,''),latitude,longitude,COALESCE(photo_url,''),COALESCE(resolve_photo_url,''),timeline_json,feedback_json,support_count,COALESCE(admin_note,''),COALESCE(assigned_officer,''),created_at,updated_at`

func scanComplaint(row rowScanner) (domain.Complaint, error) {
	var c domain.Complaint
	var timelineJSON string
	var feedbackJSON sql.NullString
	err := row.Scan(&c.ID, &c.RefID, &c.OwnerID, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status,
		&c.Ward, &c.Latitude, &c.Longitude, &c.PhotoURL, &c.ResolvePhotoURL, &timelineJSON, &feedbackJSON,
		&c.SupportCount, &c.AdminNote, &c.AssignedOfficer, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(timelineJSON), &c.Timeline); err != nil {
		return c, fmt.Errorf("decode timeline for %s: %w", c.RefID, err)
	}
	if feedbackJSON.Valid && feedbackJSON.String != "" {
		var fb domain.Feedback
		if err := json.Unmarshal([]byte(feedbackJSON.String), &fb); err != nil {
			return c, fmt.Errorf("decode feedback for %s: %w", c.RefID, err)
		}
		c.Feedback = &fb
	}
	return c, nil
}

// NextRefSeqTx atomically advances the per-year reference counter. The upsert
// keeps the sequence unique under concurrent creation; gaps from rolled-back
// transactions are acceptable.
func (r Repo) NextRefSeqTx(ctx context.Context, tx *sql.Tx, year int) (int, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO ref_counters(year,next_seq) VALUES (?,2)
ON CONFLICT(year) DO UPDATE SET next_seq=next_seq+1`, year)
	if err != nil {
		return 0, err
	}
	var next int
	if err := tx.QueryRowContext(ctx, `SELECT next_seq FROM ref_counters WHERE year=?`, year).Scan(&next); err != nil {
		return 0, err
	}
	return next - 1, nil
}

func (r Repo) InsertComplaintTx(ctx context.Context, tx *sql.Tx, c domain.Complaint) error {
	timelineJSON, err := json.Marshal(c.Timeline)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO complaints(id,ref_id,owner_id,title,description,category,priority,status,ward,latitude,longitude,photo_url,resolve_photo_url,timeline_json,feedback_json,support_count,admin_note,assigned_officer,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.RefID, c.OwnerID, c.Title, nullable(c.Description), c.Category, c.Priority, c.Status,
		nullable(c.Ward), c.Latitude, c.Longitude, nullable(c.PhotoURL), nullable(c.ResolvePhotoURL),
		string(timelineJSON), nil, c.SupportCount, nullable(c.AdminNote), nullable(c.AssignedOfficer),
		c.CreatedAt, c.UpdatedAt)
	return err
}

// GetComplaint accepts either the storage id or the human-facing ref id.
func (r Repo) GetComplaint(ctx context.Context, id string) (domain.Complaint, error) {
	return scanComplaint(r.DB.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id=? OR ref_id=?`, id, id))
}

// ComplaintFilter narrows ListComplaints. Zero values mean "any".
type ComplaintFilter struct {
	OwnerID  string
	Category string
	Priority string
	Status   string
	Ward     string
	Search   string
	Page     int
	Limit    int
}

func (r Repo) ListComplaints(ctx context.Context, f ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Ward != "" {
		clauses = append(clauses, "ward=?")
		args = append(args, f.Ward)
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ? OR ref_id LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
		if f.Page > 1 {
			query += ` OFFSET ?`
			args = append(args, (f.Page-1)*f.Limit)
		}
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateComplaintTx(ctx context.Context, tx *sql.Tx, c domain.Complaint) error {
	timelineJSON, err := json.Marshal(c.Timeline)
	if err != nil {
		return err
	}
	var feedbackJSON any
	if c.Feedback != nil {
		data, err := json.Marshal(c.Feedback)
		if err != nil {
			return err
		}
		feedbackJSON = string(data)
	}
	res, err := tx.ExecContext(ctx, `UPDATE complaints SET status=?, resolve_photo_url=?, timeline_json=?, feedback_json=?, support_count=?, admin_note=?, assigned_officer=?, updated_at=? WHERE id=?`,
		c.Status, nullable(c.ResolvePhotoURL), string(timelineJSON), feedbackJSON, c.SupportCount,
		nullable(c.AdminNote), nullable(c.AssignedOfficer), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteComplaintTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM complaints WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSupporterTx records a supporter; returns false when the user already
// supported this complaint. The primary key makes the membership idempotent.
func (r Repo) AddSupporterTx(ctx context.Context, tx *sql.Tx, complaintID, userID string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO complaint_supporters(complaint_id,user_id,supported_at) VALUES (?,?,?)`,
		complaintID, userID, now.UTC().Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	_, err = tx.ExecContext(ctx, `UPDATE complaints SET support_count=support_count+1 WHERE id=?`, complaintID)
	return true, err
}

// Stats aggregates complaint counts for the admin dashboard.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	ByPriority map[string]int `json:"by_priority"`
	Today      int            `json:"today"`
	ThisWeek   int            `json:"this_week"`
}

func (r Repo) ComplaintStats(ctx context.Context, now time.Time) (Stats, error) {
	stats := Stats{
		ByStatus:   map[string]int{},
		ByCategory: map[string]int{},
		ByPriority: map[string]int{},
	}
	count := func(query, key string, into map[string]int, args ...any) error {
		rows, err := r.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			var n int
			if err := rows.Scan(&k, &n); err != nil {
				return err
			}
			into[k] = n
		}
		return rows.Err()
	}
	if err := count(`SELECT status, COUNT(*) FROM complaints GROUP BY status`, "status", stats.ByStatus); err != nil {
		return stats, err
	}
	if err := count(`SELECT category, COUNT(*) FROM complaints GROUP BY category`, "category", stats.ByCategory); err != nil {
		return stats, err
	}
	if err := count(`SELECT priority, COUNT(*) FROM complaints GROUP BY priority`, "priority", stats.ByPriority); err != nil {
		return stats, err
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	day := now.UTC().Truncate(24 * time.Hour).Format(time.RFC3339)
	week := now.UTC().AddDate(0, 0, -7).Format(time.RFC3339)
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints WHERE created_at >= ?`, day).Scan(&stats.Today); err != nil {
		return stats, err
	}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints WHERE created_at >= ?`, week).Scan(&stats.ThisWeek); err != nil {
		return stats, err
	}
	return stats, nil
}
