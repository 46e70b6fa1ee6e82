package alarm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// Repository defines persistence operations for alarm rows.
type Repository interface {
	Create(ctx context.Context, title string, scheduledAt time.Time) (*domain.Alarm, error)
	List(ctx context.Context) ([]*domain.Alarm, error)
	GetByID(ctx context.Context, id int64) (*domain.Alarm, error)
	Delete(ctx context.Context, id int64) error
	UpdateActive(ctx context.Context, id int64, isActive bool) error
	UpdateFired(ctx context.Context, id int64, firedAt time.Time) error
	Close() error
}

// migration creates the alarms table. Timestamps are stored as unix
// milliseconds in UTC; fired_at stays NULL until the alarm fires.
const migration = `
CREATE TABLE IF NOT EXISTS alarms (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    title        TEXT    NOT NULL,
    scheduled_at INTEGER NOT NULL,
    is_active    INTEGER NOT NULL DEFAULT 1,
    created_at   INTEGER NOT NULL,
    fired_at     INTEGER
);
CREATE INDEX IF NOT EXISTS idx_alarms_pending ON alarms (is_active, fired_at);
`

// SQLiteRepository persists alarm rows in a local SQLite database.
type SQLiteRepository struct {
	// db is the underlying database handle.
	db *sql.DB
	// now supplies creation timestamps; overridable in tests.
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at path and
// applies the schema migration.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The modernc driver serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent fire completions.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err = db.ExecContext(ctx, migration); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply migration: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: time.Now,
	}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Create inserts a new active alarm row and returns the stored entity
// with its assigned id.
func (r *SQLiteRepository) Create(ctx context.Context, title string, scheduledAt time.Time) (*domain.Alarm, error) {
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	createdAt := r.now().UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO alarms (title, scheduled_at, is_active, created_at) VALUES (?, ?, 1, ?)`,
		title, scheduledAt.UTC().UnixMilli(), createdAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert alarm: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted id: %w", err)
	}

	return &domain.Alarm{
		ID:          id,
		Title:       title,
		ScheduledAt: scheduledAt.UTC().Truncate(time.Millisecond),
		IsActive:    true,
		CreatedAt:   createdAt.Truncate(time.Millisecond),
	}, nil
}

// List returns every stored alarm ordered by target instant.
func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, scheduled_at, is_active, created_at, fired_at
		FROM alarms
		ORDER BY scheduled_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var alarms []*domain.Alarm

	for rows.Next() {
		alarm, err := scanAlarm(rows.Scan)
		if err != nil {
			return nil, err
		}

		alarms = append(alarms, alarm)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarm rows: %w", err)
	}

	return alarms, nil
}

// GetByID returns a single alarm or domain.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*domain.Alarm, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, scheduled_at, is_active, created_at, fired_at
		FROM alarms
		WHERE id = ?
	`, id)

	alarm, err := scanAlarm(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}

	return alarm, err
}

// Delete removes the alarm row, returning domain.ErrNotFound when absent.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	return checkAffected(result)
}

// UpdateActive toggles the is_active flag, returning domain.ErrNotFound when absent.
func (r *SQLiteRepository) UpdateActive(ctx context.Context, id int64, isActive bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alarms SET is_active = ? WHERE id = ?`,
		boolToInt(isActive), id,
	)
	if err != nil {
		return fmt.Errorf("update alarm activity: %w", err)
	}

	return checkAffected(result)
}

// UpdateFired records the firing instant. The guard on fired_at keeps the
// "set exactly once" invariant even if the fire path races with itself.
func (r *SQLiteRepository) UpdateFired(ctx context.Context, id int64, firedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alarms SET fired_at = ? WHERE id = ? AND fired_at IS NULL`,
		firedAt.UTC().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("update alarm firing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}

	if affected > 0 {
		return nil
	}

	// Distinguish a deleted alarm from one that already fired.
	if _, err = r.GetByID(ctx, id); err != nil {
		return err
	}

	return domain.ErrAlreadyFired
}

// scanAlarm builds a domain entity from one row of the standard column set.
func scanAlarm(scan func(dest ...any) error) (*domain.Alarm, error) {
	var (
		alarm       domain.Alarm
		scheduledAt int64
		isActive    int64
		createdAt   int64
		firedAt     sql.NullInt64
	)

	if err := scan(&alarm.ID, &alarm.Title, &scheduledAt, &isActive, &createdAt, &firedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("scan alarm row: %w", err)
	}

	alarm.ScheduledAt = time.UnixMilli(scheduledAt).UTC()
	alarm.IsActive = isActive != 0
	alarm.CreatedAt = time.UnixMilli(createdAt).UTC()

	if firedAt.Valid {
		fired := time.UnixMilli(firedAt.Int64).UTC()
		alarm.FiredAt = &fired
	}

	return &alarm, nil
}

// checkAffected maps "zero rows touched" to domain.ErrNotFound.
func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}

	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
