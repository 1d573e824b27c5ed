package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/model"
)

// timeLayout is how timestamps are stored in sqlite TEXT columns.
const timeLayout = "2006-01-02 15:04:05"

// dateLayout keys daily counters by the campaign's local calendar date.
const dateLayout = "2006-01-02"

type ProfileRepositoryInterface interface {
	// Import & query
	ImportURLs(rows []model.URLRow) (*model.ImportResult, error)
	GetPendingProfiles(limit int) ([]model.Profile, error)
	GetAcceptedProfiles(limit int) ([]model.Profile, error)
	GetProfilesByStatus(status string, limit int) ([]model.Profile, error)
	GetProfileByURL(url string) (*model.Profile, error)
	GetAllProfiles() ([]model.Profile, error)

	// Mutations
	UpdateStatus(url, status string, name, errorMsg *string) error
	ResetErrors() (int, error)

	// Daily counters
	IncrementDailyCounter(kind string) error
	GetDailyCount(kind string) (int, error)
	IsDailyCapReached(kind string, cap int) (bool, error)

	// Reporting
	GetSummary() (map[string]int, error)
	GetDailyStats() ([]model.DailyStat, error)
}

type ProfileRepository struct {
	DB *sql.DB

	// Now is injectable so counter-date behavior is testable. Nil means time.Now.
	Now func() time.Time
}

func (r *ProfileRepository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// today is always computed at call time, never cached: a long-running
// campaign crosses midnight and must start a fresh counter.
func (r *ProfileRepository) today() string {
	return r.now().Format(dateLayout)
}

// ====================== Import & query ======================

// ImportURLs bulk-upserts profile URLs. URL is the dedup key: rows that
// already exist are left completely untouched (status, name, error preserved).
func (r *ProfileRepository) ImportURLs(rows []model.URLRow) (*model.ImportResult, error) {
	result := &model.ImportResult{Total: len(rows)}
	now := r.now().Format(timeLayout)

	for _, row := range rows {
		res, err := r.DB.Exec(`
            INSERT INTO profiles (url, status, created_at, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(url) DO NOTHING
        `, row.URL, model.StatusPending, now, now)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", row.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			result.Imported++
		} else {
			result.Duplicates++
		}
	}

	return result, nil
}

// GetPendingProfiles returns profiles awaiting a connection request,
// oldest-imported first. limit <= 0 means no limit.
func (r *ProfileRepository) GetPendingProfiles(limit int) ([]model.Profile, error) {
	return r.GetProfilesByStatus(model.StatusPending, limit)
}

// GetAcceptedProfiles returns the follow-up candidates: profiles where a
// request was sent. Whether it was accepted is detected on-page.
func (r *ProfileRepository) GetAcceptedProfiles(limit int) ([]model.Profile, error) {
	return r.GetProfilesByStatus(model.StatusRequestSent, limit)
}

func (r *ProfileRepository) GetProfilesByStatus(status string, limit int) ([]model.Profile, error) {
	query := `
        SELECT id, url, name, status, error_msg, created_at, updated_at
        FROM profiles WHERE status = ? ORDER BY id
    `
	args := []interface{}{status}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProfiles(rows)
}

func (r *ProfileRepository) GetProfileByURL(url string) (*model.Profile, error) {
	row := r.DB.QueryRow(`
        SELECT id, url, name, status, error_msg, created_at, updated_at
        FROM profiles WHERE url = ?
    `, url)

	p, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewProfileNotFound(url)
		}
		return nil, err
	}
	return p, nil
}

// GetAllProfiles returns every column of every profile, ordered by import,
// for the external CSV-writer collaborator.
func (r *ProfileRepository) GetAllProfiles() ([]model.Profile, error) {
	rows, err := r.DB.Query(`
        SELECT id, url, name, status, error_msg, created_at, updated_at
        FROM profiles ORDER BY id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// ====================== Mutations ======================

// UpdateStatus sets the status and optional fields, refreshing updated_at.
// Returns ErrProfileNotFound if the URL is unknown.
func (r *ProfileRepository) UpdateStatus(url, status string, name, errorMsg *string) error {
	query := "UPDATE profiles SET status = ?, updated_at = ?"
	args := []interface{}{status, r.now().Format(timeLayout)}

	if name != nil {
		query += ", name = ?"
		args = append(args, *name)
	}
	if errorMsg != nil {
		query += ", error_msg = ?"
		args = append(args, *errorMsg)
	}

	query += " WHERE url = ?"
	args = append(args, url)

	res, err := r.DB.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewProfileNotFound(url)
	}
	return nil
}

// ResetErrors is the one explicit manual transition: error -> pending.
// Returns the number of profiles reset.
func (r *ProfileRepository) ResetErrors() (int, error) {
	res, err := r.DB.Exec(`
        UPDATE profiles SET status = ?, error_msg = NULL, updated_at = ?
        WHERE status = ?
    `, model.StatusPending, r.now().Format(timeLayout), model.StatusError)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ====================== Daily counters ======================

func validCounter(kind string) error {
	if kind != model.CounterConnections && kind != model.CounterMessages {
		return fmt.Errorf("invalid counter kind: %s", kind)
	}
	return nil
}

func (r *ProfileRepository) ensureDailyRow() error {
	_, err := r.DB.Exec(`
        INSERT INTO daily_counters (date) VALUES (?)
        ON CONFLICT(date) DO NOTHING
    `, r.today())
	return err
}

func (r *ProfileRepository) IncrementDailyCounter(kind string) error {
	if err := validCounter(kind); err != nil {
		return err
	}
	if err := r.ensureDailyRow(); err != nil {
		return err
	}
	// kind is validated above, safe to interpolate the column name.
	query := fmt.Sprintf("UPDATE daily_counters SET %s = %s + 1 WHERE date = ?", kind, kind)
	_, err := r.DB.Exec(query, r.today())
	return err
}

func (r *ProfileRepository) GetDailyCount(kind string) (int, error) {
	if err := validCounter(kind); err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT %s FROM daily_counters WHERE date = ?", kind)

	var count int
	err := r.DB.QueryRow(query, r.today()).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (r *ProfileRepository) IsDailyCapReached(kind string, cap int) (bool, error) {
	count, err := r.GetDailyCount(kind)
	if err != nil {
		return false, err
	}
	return count >= cap, nil
}

// ====================== Reporting ======================

func (r *ProfileRepository) GetSummary() (map[string]int, error) {
	summary := map[string]int{}
	for _, status := range model.AllStatuses {
		summary[status] = 0
	}

	rows, err := r.DB.Query("SELECT status, COUNT(*) FROM profiles GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary[status] = count
		total += count
	}
	summary["total"] = total

	return summary, rows.Err()
}

func (r *ProfileRepository) GetDailyStats() ([]model.DailyStat, error) {
	rows, err := r.DB.Query(`
        SELECT date, connections_sent, messages_sent
        FROM daily_counters ORDER BY date DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.DailyStat{}
	for rows.Next() {
		var s model.DailyStat
		if err := rows.Scan(&s.Date, &s.ConnectionsSent, &s.MessagesSent); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ====================== Scan helpers ======================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.URL, &p.Name, &p.Status, &p.ErrorMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]model.Profile, error) {
	profiles := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

var _ ProfileRepositoryInterface = (*ProfileRepository)(nil)
