// Package postgres provides pgx-backed persistence for the health API.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/observability"
)

// MaxListLimit caps how many records a single list query returns.
const MaxListLimit = 200

const schema = `
CREATE TABLE IF NOT EXISTS health_records (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	date TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	weight DOUBLE PRECISION,
	steps INTEGER,
	water_intake DOUBLE PRECISION,
	sleep_hours DOUBLE PRECISION,
	systolic INTEGER,
	diastolic INTEGER,
	pulse INTEGER,
	mood TEXT,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS goals (
	user_id TEXT PRIMARY KEY,
	steps_goal INTEGER NOT NULL,
	water_goal DOUBLE PRECISION NOT NULL,
	sleep_goal DOUBLE PRECISION NOT NULL,
	weight_goal DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_health_records_user_date ON health_records(user_id, date);
CREATE INDEX IF NOT EXISTS idx_health_records_user_created ON health_records(user_id, created_at DESC);
`

// Repository provides Postgres-backed persistence for records and goals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

const recordColumns = `id, user_id, date, created_at, weight, steps, water_intake, sleep_hours, systolic, diastolic, pulse, mood, notes`

// Insert stores a record, assigning a server ID, and returns the stored copy.
func (r *Repository) Insert(ctx context.Context, record domain.HealthRecord) (domain.HealthRecord, error) {
	record.ID = uuid.NewString()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.Synced = true
	record.LocalID = ""

	const stmt = `INSERT INTO health_records (` + recordColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := r.pool.Exec(ctx, stmt,
		record.ID,
		record.UserID,
		record.Date,
		record.CreatedAt,
		record.Weight,
		record.Steps,
		record.WaterIntake,
		record.SleepHours,
		record.Systolic,
		record.Diastolic,
		record.Pulse,
		moodValue(record.Mood),
		record.Notes,
	)
	if err != nil {
		return domain.HealthRecord{}, fmt.Errorf("insert record: %w", err)
	}

	observability.RecordPersisted(record.CreatedAt)
	return record, nil
}

// FindDuplicate looks for a same-day record with identical metric values.
// Metric comparison happens in Go so NULL handling stays in one place.
func (r *Repository) FindDuplicate(ctx context.Context, candidate domain.HealthRecord) (*domain.HealthRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE user_id = $1 AND date = $2`,
		candidate.UserID, candidate.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		existing, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if domain.MetricsEqual(existing, candidate) {
			return &existing, nil
		}
	}
	return nil, rows.Err()
}

// ListByUser returns the user's records newest first. The window is bounded
// by days when positive and always capped at MaxListLimit.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit, days int) ([]domain.HealthRecord, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT ` + recordColumns + ` FROM health_records WHERE user_id = $1`
	args := []any{userID}
	if days > 0 {
		query += ` AND date >= $2`
		args = append(args, domain.DaysAgo(time.Now().UTC(), days))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.HealthRecord, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetGoals fetches the stored goals; nil means the user never saved any.
func (r *Repository) GetGoals(ctx context.Context, userID string) (*domain.Goals, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT steps_goal, water_goal, sleep_goal, weight_goal FROM goals WHERE user_id = $1`, userID)

	var g domain.Goals
	if err := row.Scan(&g.StepsGoal, &g.WaterGoal, &g.SleepGoal, &g.WeightGoal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	g.UserID = userID
	return &g, nil
}

// UpsertGoals replaces the user's goals wholesale; goals are last-write-wins,
// never a partial merge.
func (r *Repository) UpsertGoals(ctx context.Context, goals domain.Goals) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO goals (user_id, steps_goal, water_goal, sleep_goal, weight_goal)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE SET
			steps_goal = EXCLUDED.steps_goal,
			water_goal = EXCLUDED.water_goal,
			sleep_goal = EXCLUDED.sleep_goal,
			weight_goal = EXCLUDED.weight_goal`,
		goals.UserID, goals.StepsGoal, goals.WaterGoal, goals.SleepGoal, goals.WeightGoal)
	return err
}

func scanRecord(rows pgx.Rows) (domain.HealthRecord, error) {
	var record domain.HealthRecord
	var mood *string
	if err := rows.Scan(
		&record.ID,
		&record.UserID,
		&record.Date,
		&record.CreatedAt,
		&record.Weight,
		&record.Steps,
		&record.WaterIntake,
		&record.SleepHours,
		&record.Systolic,
		&record.Diastolic,
		&record.Pulse,
		&mood,
		&record.Notes,
	); err != nil {
		return domain.HealthRecord{}, err
	}
	if mood != nil {
		m := domain.Mood(*mood)
		record.Mood = &m
	}
	record.Synced = true
	return record, nil
}

func moodValue(m *domain.Mood) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}
