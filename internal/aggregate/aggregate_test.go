package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func moodPtr(m domain.Mood) *domain.Mood { return &m }
func strPtr(s string) *string       { return &s }

func record(date string, createdAt time.Time, mutate func(*domain.HealthRecord)) domain.HealthRecord {
	r := domain.HealthRecord{
		UserID:    "u1",
		Date:      date,
		CreatedAt: createdAt,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestTodaySnapshotEmptyNeverPanics(t *testing.T) {
	snap := TodaySnapshot(nil, "2024-01-15")
	require.Equal(t, "2024-01-15", snap.Date)
	require.Nil(t, snap.Steps)
	require.Nil(t, snap.Weight)
	require.Zero(t, snap.EntryCount)

	other := []domain.HealthRecord{
		record("2024-01-14", time.Now(), func(r *domain.HealthRecord) { r.Steps = intPtr(100) }),
	}
	snap = TodaySnapshot(other, "2024-01-15")
	require.Equal(t, "2024-01-15", snap.Date)
	require.Nil(t, snap.Steps)
}

func TestTodaySnapshotSumsCumulativeMetrics(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	records := []domain.HealthRecord{
		record("2024-01-15", base, func(r *domain.HealthRecord) { r.Steps = intPtr(5000) }),
		record("2024-01-15", base.Add(time.Hour), func(r *domain.HealthRecord) { r.Steps = intPtr(3000) }),
	}

	snap := TodaySnapshot(records, "2024-01-15")
	require.NotNil(t, snap.Steps)
	require.Equal(t, 8000, *snap.Steps)
	require.Equal(t, 2, snap.EntryCount)
	require.Equal(t, base.Add(time.Hour), snap.LastUpdated)
}

func TestTodaySnapshotMostRecentWinsForPointInTime(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	records := []domain.HealthRecord{
		// Deliberately out of order; CreatedAt decides, not slice position.
		record("2024-01-15", base.Add(2*time.Hour), func(r *domain.HealthRecord) {
			r.Weight = floatPtr(81.5)
			r.Mood = moodPtr(domain.MoodGood)
		}),
		record("2024-01-15", base, func(r *domain.HealthRecord) {
			r.Weight = floatPtr(82.0)
			r.Mood = moodPtr(domain.MoodBad)
			r.SleepHours = floatPtr(6.5)
		}),
		record("2024-01-15", base.Add(time.Hour), func(r *domain.HealthRecord) {
			r.SleepHours = floatPtr(1.5) // afternoon nap, summed with main sleep
		}),
	}

	snap := TodaySnapshot(records, "2024-01-15")
	require.Equal(t, 81.5, *snap.Weight)
	require.Equal(t, domain.MoodGood, *snap.Mood)
	require.Equal(t, 8.0, *snap.SleepHours)
}

func TestTodaySnapshotConcatenatesNotes(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 30, 0, 0, time.UTC)
	records := []domain.HealthRecord{
		record("2024-01-15", base, func(r *domain.HealthRecord) { r.Notes = strPtr("morning run") }),
		record("2024-01-15", base.Add(10*time.Hour), func(r *domain.HealthRecord) { r.Notes = strPtr("headache") }),
	}

	snap := TodaySnapshot(records, "2024-01-15")
	require.Equal(t, "[08:30] morning run\n[18:30] headache", snap.Notes)
}

func TestWeeklyAveragesEmptySlice(t *testing.T) {
	avg := WeeklyAverages(nil)
	require.Zero(t, avg.Steps)
	require.Zero(t, avg.WaterIntake)
	require.Zero(t, avg.SleepHours)
}

func TestWeeklyAveragesRounding(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	records := []domain.HealthRecord{
		record("2024-01-15", base, func(r *domain.HealthRecord) {
			r.Steps = intPtr(7501)
			r.WaterIntake = floatPtr(1.75)
			r.SleepHours = floatPtr(7.25)
		}),
		record("2024-01-14", base, func(r *domain.HealthRecord) {
			r.Steps = intPtr(8000)
			r.WaterIntake = floatPtr(2.0)
			r.SleepHours = floatPtr(8.0)
		}),
	}

	avg := WeeklyAverages(records)
	require.Equal(t, 7751.0, avg.Steps)       // whole steps
	require.Equal(t, 1.9, avg.WaterIntake)    // one decimal place
	require.Equal(t, 7.6, avg.SleepHours)
}

func TestWeekSliceInclusiveBounds(t *testing.T) {
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	records := []domain.HealthRecord{
		record("2024-01-15", now, nil),
		record("2024-01-08", now, nil),
		record("2024-01-07", now, nil), // one day past the window
	}

	slice := WeekSlice(records, now)
	require.Len(t, slice, 2)
	for _, r := range slice {
		require.NotEqual(t, "2024-01-07", r.Date)
	}
}

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	today := domain.Day(now)

	records := []domain.HealthRecord{
		record("2024-01-15", now, func(r *domain.HealthRecord) { r.Steps = intPtr(0) }), // zero still counts
		record("2024-01-14", now, func(r *domain.HealthRecord) { r.Steps = intPtr(4000) }),
		record("2024-01-13", now, func(r *domain.HealthRecord) { r.WaterIntake = floatPtr(1.0) }),
		record("2024-01-11", now, func(r *domain.HealthRecord) { r.Steps = intPtr(9000) }), // gap at the 12th
	}

	require.Equal(t, 3, CurrentStreak(records, today))

	// Removing the most recent day never increases the streak.
	require.Equal(t, 0, CurrentStreak(records[1:], today))

	require.Equal(t, 0, CurrentStreak(nil, today))
}

func TestCurrentStreakDropsToZeroWithoutToday(t *testing.T) {
	records := []domain.HealthRecord{record("2024-01-15", time.Now(), nil)}
	require.Equal(t, 1, CurrentStreak(records, "2024-01-15"))
	require.Equal(t, 0, CurrentStreak(nil, "2024-01-15"))
}

func TestWeeklyImprovement(t *testing.T) {
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

	var records []domain.HealthRecord
	// Trailing week: 8000 steps/day, prior week: 4000 steps/day.
	for i := 0; i < 7; i++ {
		records = append(records, record(domain.DaysAgo(now, i), now, func(r *domain.HealthRecord) {
			r.Steps = intPtr(8000)
		}))
	}
	for i := 7; i < 14; i++ {
		records = append(records, record(domain.DaysAgo(now, i), now, func(r *domain.HealthRecord) {
			r.Steps = intPtr(4000)
		}))
	}

	require.Equal(t, 100.0, WeeklyImprovement(records, now))
}

func TestWeeklyImprovementGuardsEmptyWindows(t *testing.T) {
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

	require.Zero(t, WeeklyImprovement(nil, now))

	// Only trailing-week data: prior window empty.
	current := []domain.HealthRecord{
		record(domain.Day(now), now, func(r *domain.HealthRecord) { r.Steps = intPtr(8000) }),
	}
	require.Zero(t, WeeklyImprovement(current, now))
}

func TestGoalCompletion(t *testing.T) {
	goals := domain.Goals{StepsGoal: 10000, WaterGoal: 2.0, SleepGoal: 8, WeightGoal: floatPtr(80)}

	snap := Snapshot{
		Date:        "2024-01-15",
		Steps:       intPtr(12000),
		WaterIntake: floatPtr(1.5),
		SleepHours:  floatPtr(8),
		Weight:      floatPtr(83.9), // within the 5% band around 80
	}

	c := GoalCompletion(snap, goals)
	require.Equal(t, 4, c.Total)
	require.Equal(t, 3, c.Achieved)

	// Weight outside tolerance.
	snap.Weight = floatPtr(84.1)
	c = GoalCompletion(snap, goals)
	require.Equal(t, 2, c.Achieved)

	// No weight goal configured: only three goals counted.
	goals.WeightGoal = nil
	c = GoalCompletion(snap, goals)
	require.Equal(t, 3, c.Total)
}

func TestGoalCompletionEmptySnapshot(t *testing.T) {
	c := GoalCompletion(Snapshot{Date: "2024-01-15"}, domain.DefaultGoals())
	require.Equal(t, 3, c.Total)
	require.Zero(t, c.Achieved)
}

func TestRollupByDay(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	records := []domain.HealthRecord{
		record("2024-01-15", base, func(r *domain.HealthRecord) { r.Steps = intPtr(5000) }),
		record("2024-01-15", base.Add(time.Hour), func(r *domain.HealthRecord) {
			r.Steps = intPtr(3000)
			r.Weight = floatPtr(81.0)
		}),
		record("2024-01-14", base, func(r *domain.HealthRecord) { r.WaterIntake = floatPtr(2.0) }),
	}

	rollup := RollupByDay(records)
	require.Len(t, rollup, 2)

	// Newest day first.
	require.Equal(t, "2024-01-15", rollup[0].Date)
	require.Equal(t, 8000, *rollup[0].Steps)
	require.Equal(t, 81.0, *rollup[0].Weight)
	require.Equal(t, 2, rollup[0].EntryCount)

	require.Equal(t, "2024-01-14", rollup[1].Date)
	require.Nil(t, rollup[1].Steps)
	require.Equal(t, 2.0, *rollup[1].WaterIntake)
}

func TestMergeDeduplicates(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

	local := []domain.HealthRecord{
		record("2024-01-15", base, func(r *domain.HealthRecord) { r.ID = "srv-1"; r.Synced = true }),
		record("2024-01-15", base.Add(time.Hour), func(r *domain.HealthRecord) { r.LocalID = "loc-1" }),
	}
	remote := []domain.HealthRecord{
		record("2024-01-15", base, func(r *domain.HealthRecord) { r.ID = "srv-1" }),
		record("2024-01-14", base, func(r *domain.HealthRecord) { r.ID = "srv-2" }),
		// No server ID: identity falls back to (date, createdAt).
		record("2024-01-15", base.Add(time.Hour), nil),
	}

	merged := Merge(local, remote)
	require.Len(t, merged, 3)

	// The local copy of srv-1 won, keeping its synced flag.
	for _, r := range merged {
		if r.ID == "srv-1" {
			require.True(t, r.Synced)
		}
	}
}
