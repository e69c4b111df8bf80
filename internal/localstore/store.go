// Package localstore persists health records, cached goals, and seen
// achievements on the client in SQLite. It is the authoritative record set on
// a device; the remote API is the merge target, not the source of truth.
package localstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

// MaxRecords bounds local growth: the store keeps only the most recent
// entries, evicting oldest-first like a fixed-size ring buffer.
const MaxRecords = 100

const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	local_id TEXT NOT NULL UNIQUE,
	remote_id TEXT,
	user_id TEXT NOT NULL,
	date TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	weight REAL,
	steps INTEGER,
	water_intake REAL,
	sleep_hours REAL,
	systolic INTEGER,
	diastolic INTEGER,
	pulse INTEGER,
	mood TEXT,
	notes TEXT,
	synced INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS goals_cache (
	user_id TEXT PRIMARY KEY,
	steps_goal INTEGER NOT NULL,
	water_goal REAL NOT NULL,
	sleep_goal REAL NOT NULL,
	weight_goal REAL
);

CREATE TABLE IF NOT EXISTS seen_achievements (
	id TEXT PRIMARY KEY
);

CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
CREATE INDEX IF NOT EXISTS idx_records_synced ON records(synced);
`

// Store is the SQLite-backed local store.
type Store struct {
	db *sql.DB
}

// Open creates the backing database file (and its directory) if needed and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append validates the record, assigns a LocalID, persists it unsynced, and
// trims the store to MaxRecords. The stored record is returned with its
// assigned LocalID. Persistence errors are surfaced, never swallowed: the
// caller decides whether to fall back to a direct remote write.
func (s *Store) Append(record domain.HealthRecord) (domain.HealthRecord, error) {
	if err := record.Validate(); err != nil {
		return domain.HealthRecord{}, err
	}

	record.LocalID = uuid.NewString()
	record.Synced = false
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	const stmt = `INSERT INTO records
		(local_id, remote_id, user_id, date, created_at, weight, steps, water_intake, sleep_hours, systolic, diastolic, pulse, mood, notes, synced)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,0)`

	_, err := s.db.Exec(stmt,
		record.LocalID,
		nullString(record.ID),
		record.UserID,
		record.Date,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
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
		return domain.HealthRecord{}, fmt.Errorf("persist record: %w", err)
	}

	if err := s.trim(); err != nil {
		return domain.HealthRecord{}, fmt.Errorf("trim records: %w", err)
	}
	return record, nil
}

// MarkSynced flips the synced flag for the record with the given LocalID.
// Marking an unknown or already-synced record is a no-op.
func (s *Store) MarkSynced(localID string) error {
	_, err := s.db.Exec(`UPDATE records SET synced = 1 WHERE local_id = ?`, localID)
	return err
}

// SetRemoteID records the server-assigned ID after a confirmed push.
func (s *Store) SetRemoteID(localID, remoteID string) error {
	_, err := s.db.Exec(`UPDATE records SET remote_id = ? WHERE local_id = ?`, remoteID, localID)
	return err
}

// ListUnsynced returns pending records in insertion order.
func (s *Store) ListUnsynced() ([]domain.HealthRecord, error) {
	return s.list(`SELECT ` + recordColumns + ` FROM records WHERE synced = 0 ORDER BY seq`)
}

// ListAll returns every stored record in insertion order.
func (s *Store) ListAll() ([]domain.HealthRecord, error) {
	return s.list(`SELECT ` + recordColumns + ` FROM records ORDER BY seq`)
}

// GoalsCache returns the cached goals, reporting whether any were cached.
func (s *Store) GoalsCache(userID string) (domain.Goals, bool, error) {
	row := s.db.QueryRow(`SELECT steps_goal, water_goal, sleep_goal, weight_goal FROM goals_cache WHERE user_id = ?`, userID)

	var g domain.Goals
	var weight sql.NullFloat64
	if err := row.Scan(&g.StepsGoal, &g.WaterGoal, &g.SleepGoal, &weight); err != nil {
		if err == sql.ErrNoRows {
			return domain.Goals{}, false, nil
		}
		return domain.Goals{}, false, err
	}
	g.UserID = userID
	if weight.Valid {
		g.WeightGoal = &weight.Float64
	}
	return g, true, nil
}

// PutGoalsCache replaces the cached goals for the user. Goals are a full
// upsert, never a partial merge.
func (s *Store) PutGoalsCache(goals domain.Goals) error {
	_, err := s.db.Exec(`INSERT INTO goals_cache (user_id, steps_goal, water_goal, sleep_goal, weight_goal)
		VALUES (?,?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET
			steps_goal = excluded.steps_goal,
			water_goal = excluded.water_goal,
			sleep_goal = excluded.sleep_goal,
			weight_goal = excluded.weight_goal`,
		goals.UserID, goals.StepsGoal, goals.WaterGoal, goals.SleepGoal, goals.WeightGoal)
	return err
}

// SeenAchievements loads the set of already-announced achievement IDs.
func (s *Store) SeenAchievements() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT id FROM seen_achievements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

// MarkAchievementSeen records an achievement ID as announced.
func (s *Store) MarkAchievementSeen(id string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO seen_achievements (id) VALUES (?)`, id)
	return err
}

const recordColumns = `local_id, remote_id, user_id, date, created_at, weight, steps, water_intake, sleep_hours, systolic, diastolic, pulse, mood, notes, synced`

func (s *Store) list(query string) ([]domain.HealthRecord, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HealthRecord
	for rows.Next() {
		var (
			r         domain.HealthRecord
			remoteID  sql.NullString
			createdAt string
			weight    sql.NullFloat64
			steps     sql.NullInt64
			water     sql.NullFloat64
			sleep     sql.NullFloat64
			systolic  sql.NullInt64
			diastolic sql.NullInt64
			pulse     sql.NullInt64
			mood      sql.NullString
			notes     sql.NullString
			synced    int
		)
		if err := rows.Scan(&r.LocalID, &remoteID, &r.UserID, &r.Date, &createdAt,
			&weight, &steps, &water, &sleep, &systolic, &diastolic, &pulse, &mood, &notes, &synced); err != nil {
			return nil, err
		}

		if remoteID.Valid {
			r.ID = remoteID.String
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = ts
		}
		if weight.Valid {
			r.Weight = &weight.Float64
		}
		if steps.Valid {
			v := int(steps.Int64)
			r.Steps = &v
		}
		if water.Valid {
			r.WaterIntake = &water.Float64
		}
		if sleep.Valid {
			r.SleepHours = &sleep.Float64
		}
		if systolic.Valid {
			v := int(systolic.Int64)
			r.Systolic = &v
		}
		if diastolic.Valid {
			v := int(diastolic.Int64)
			r.Diastolic = &v
		}
		if pulse.Valid {
			v := int(pulse.Int64)
			r.Pulse = &v
		}
		if mood.Valid {
			m := domain.Mood(mood.String)
			r.Mood = &m
		}
		if notes.Valid {
			r.Notes = &notes.String
		}
		r.Synced = synced != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) trim() error {
	_, err := s.db.Exec(`DELETE FROM records WHERE seq NOT IN
		(SELECT seq FROM records ORDER BY seq DESC LIMIT ?)`, MaxRecords)
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func moodValue(m *domain.Mood) any {
	if m == nil {
		return nil
	}
	return string(*m)
}
