// Package tracker is the client-facing core: it owns entry submission and
// dashboard computation on top of the local store, the gateway and the sync
// engine.
package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/achievements"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/aggregate"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/gateway"
)

// Local is the durable client-side store.
type Local interface {
	Append(record domain.HealthRecord) (domain.HealthRecord, error)
	ListAll() ([]domain.HealthRecord, error)
}

// Remote covers the record endpoints of the API.
type Remote interface {
	PushRecord(ctx context.Context, record domain.HealthRecord, force bool) (*gateway.PushResult, error)
	FetchRecords(ctx context.Context, userID string, limit, days int) ([]domain.HealthRecord, error)
}

// Syncer requests a background flush of pending records.
type Syncer interface {
	TriggerNow()
}

// GoalSource resolves the user's current targets.
type GoalSource interface {
	Load(ctx context.Context) (domain.Goals, error)
}

// Core wires the client components behind one API.
type Core struct {
	userID string
	local  Local
	remote Remote
	syncer Syncer
	goals  GoalSource
	logger *log.Logger

	fetchLimit int
	fetchDays  int
}

// NewCore constructs the client core for one user.
func NewCore(userID string, local Local, remote Remote, syncer Syncer, goals GoalSource, logger *log.Logger) *Core {
	if logger == nil {
		logger = log.New(log.Writer(), "[tracker] ", log.LstdFlags)
	}
	return &Core{
		userID:     userID,
		local:      local,
		remote:     remote,
		syncer:     syncer,
		goals:      goals,
		logger:     logger,
		fetchLimit: 100,
		fetchDays:  30,
	}
}

// Receipt describes where a submitted entry ended up.
type Receipt struct {
	Record domain.HealthRecord `json:"record"`
	// Queued means the entry is durable locally and will reach the server on
	// the next sync pass. False means it went straight to the server because
	// the local write failed.
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

// AddEntry validates and stores one entry. The local write is authoritative;
// when it fails for a non-validation reason the entry is pushed straight to
// the server so the data survives, just without local durability.
func (c *Core) AddEntry(ctx context.Context, record domain.HealthRecord, force bool) (Receipt, error) {
	if record.UserID == "" {
		record.UserID = c.userID
	}
	if record.Date == "" {
		record.Date = domain.Day(time.Now())
	}
	day, err := domain.NormalizeDay(record.Date)
	if err != nil {
		return Receipt{}, err
	}
	record.Date = day
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := record.Validate(); err != nil {
		return Receipt{}, err
	}

	stored, err := c.local.Append(record)
	if err == nil {
		c.syncer.TriggerNow()
		return Receipt{
			Record:  stored,
			Queued:  true,
			Message: "saved locally, will sync shortly",
		}, nil
	}

	// The record already validated, so this is a storage failure. Local
	// durability is gone for this entry; try the server directly.
	c.logger.Printf("local append failed, pushing directly: %v", err)
	result, pushErr := c.remote.PushRecord(ctx, record, force)
	if pushErr != nil {
		return Receipt{}, fmt.Errorf("local store failed (%v): %w", err, pushErr)
	}
	record.ID = result.ID
	record.Synced = true
	return Receipt{
		Record:  record,
		Queued:  false,
		Message: "saved to server, local copy unavailable",
	}, nil
}

// Dashboard is the computed view the UI renders.
type Dashboard struct {
	Today        aggregate.Snapshot         `json:"today"`
	WeeklyAvg    aggregate.Averages         `json:"weeklyAverages"`
	Streak       int                        `json:"streakDays"`
	Improvement  float64                    `json:"weeklyImprovementPct"`
	Goals        domain.Goals               `json:"goals"`
	Completion   aggregate.Completion       `json:"goalCompletion"`
	Achievements []achievements.Achievement `json:"achievements"`
	TotalXP      int                        `json:"totalXp"`
	Online       bool                       `json:"online"`
}

// Dashboard folds the merged local and remote history into the stats view.
// Remote unavailability degrades to local-only data, it never fails the call.
func (c *Core) Dashboard(ctx context.Context) (Dashboard, error) {
	local, err := c.local.ListAll()
	if err != nil {
		return Dashboard{}, fmt.Errorf("read local history: %w", err)
	}

	records := local
	online := false
	if remote, err := c.remote.FetchRecords(ctx, c.userID, c.fetchLimit, c.fetchDays); err == nil {
		records = aggregate.Merge(local, remote)
		online = true
	} else {
		c.logger.Printf("remote history unavailable: %v", err)
	}

	goals, err := c.goals.Load(ctx)
	if err != nil {
		goals = domain.DefaultGoals()
	}

	now := time.Now()
	today := domain.Day(now)
	snap := aggregate.TodaySnapshot(records, today)

	unlocked := achievements.Evaluate(achievements.Input{
		Records: records,
		Goals:   goals,
		Today:   today,
	})

	return Dashboard{
		Today:        snap,
		WeeklyAvg:    aggregate.WeeklyAverages(aggregate.WeekSlice(records, now)),
		Streak:       aggregate.CurrentStreak(records, today),
		Improvement:  aggregate.WeeklyImprovement(records, now),
		Goals:        goals,
		Completion:   aggregate.GoalCompletion(snap, goals),
		Achievements: unlocked,
		TotalXP:      achievements.TotalXP(unlocked),
		Online:       online,
	}, nil
}
