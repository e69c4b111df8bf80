// Package aggregate derives daily, weekly, and all-time statistics from raw
// health records. Every function here is pure: no storage, no network, no
// clock access beyond the explicit now/today arguments.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

// Snapshot is the merged view of a single calendar day. Cumulative metrics
// (steps, water, sleep) are summed across same-day entries; point-in-time
// metrics (weight, mood) take the most recent value.
type Snapshot struct {
	Date        string       `json:"date"`
	Weight      *float64     `json:"weight,omitempty"`
	Steps       *int         `json:"steps,omitempty"`
	WaterIntake *float64     `json:"waterIntake,omitempty"`
	SleepHours  *float64     `json:"sleepHours,omitempty"`
	Mood        *domain.Mood `json:"mood,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	EntryCount  int          `json:"entryCount"`
	LastUpdated time.Time    `json:"lastUpdated,omitempty"`
}

// Averages holds weekly means. Steps is rounded to whole steps, the others to
// one decimal place.
type Averages struct {
	Steps       float64 `json:"steps"`
	WaterIntake float64 `json:"waterIntake"`
	SleepHours  float64 `json:"sleepHours"`
}

// Completion counts how many configured goals today's snapshot meets.
type Completion struct {
	Achieved int `json:"achieved"`
	Total    int `json:"total"`
}

// TodaySnapshot folds all records whose date matches today into a Snapshot.
// An empty match yields the zero snapshot for that day.
func TodaySnapshot(records []domain.HealthRecord, today string) Snapshot {
	snap := Snapshot{Date: today}

	matched := make([]domain.HealthRecord, 0, 4)
	for _, r := range records {
		if r.Date == today {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return snap
	}

	// Oldest first, so point-in-time fields end up holding the latest value.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	var notes []string
	for _, r := range matched {
		if r.Steps != nil {
			snap.Steps = addInt(snap.Steps, *r.Steps)
		}
		if r.WaterIntake != nil {
			snap.WaterIntake = addFloat(snap.WaterIntake, *r.WaterIntake)
		}
		if r.SleepHours != nil {
			snap.SleepHours = addFloat(snap.SleepHours, *r.SleepHours)
		}
		if r.Weight != nil {
			w := *r.Weight
			snap.Weight = &w
		}
		if r.Mood != nil {
			m := *r.Mood
			snap.Mood = &m
		}
		if r.Notes != nil && *r.Notes != "" {
			notes = append(notes, fmt.Sprintf("[%s] %s", r.CreatedAt.UTC().Format("15:04"), *r.Notes))
		}
		if r.CreatedAt.After(snap.LastUpdated) {
			snap.LastUpdated = r.CreatedAt
		}
	}

	snap.Notes = strings.Join(notes, "\n")
	snap.EntryCount = len(matched)
	return snap
}

// WeekSlice returns the records dated within the trailing seven days of now,
// inclusive on both ends.
func WeekSlice(records []domain.HealthRecord, now time.Time) []domain.HealthRecord {
	from := domain.DaysAgo(now, 7)
	to := domain.Day(now)

	out := make([]domain.HealthRecord, 0, len(records))
	for _, r := range records {
		if r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	return out
}

// WeeklyAverages computes the arithmetic mean of the cumulative metrics over
// the slice. An empty slice yields all zeroes rather than dividing by zero.
func WeeklyAverages(slice []domain.HealthRecord) Averages {
	var avg Averages
	var steps, water, sleep float64
	var nSteps, nWater, nSleep int

	for _, r := range slice {
		if r.Steps != nil {
			steps += float64(*r.Steps)
			nSteps++
		}
		if r.WaterIntake != nil {
			water += *r.WaterIntake
			nWater++
		}
		if r.SleepHours != nil {
			sleep += *r.SleepHours
			nSleep++
		}
	}

	if nSteps > 0 {
		avg.Steps = math.Round(steps / float64(nSteps))
	}
	if nWater > 0 {
		avg.WaterIntake = round1(water / float64(nWater))
	}
	if nSleep > 0 {
		avg.SleepHours = round1(sleep / float64(nSleep))
	}
	return avg
}

// streakLookbackDays bounds the backward walk in CurrentStreak.
const streakLookbackDays = 365

// CurrentStreak counts consecutive days with at least one record, walking
// backward from today and stopping at the first gap. Any record counts,
// including an explicit zero-valued metric.
func CurrentStreak(records []domain.HealthRecord, today string) int {
	days := make(map[string]struct{}, len(records))
	for _, r := range records {
		days[r.Date] = struct{}{}
	}

	start, err := domain.ParseDay(today)
	if err != nil {
		return 0
	}

	streak := 0
	for i := 0; i < streakLookbackDays; i++ {
		day := domain.Day(start.AddDate(0, 0, -i))
		if _, ok := days[day]; !ok {
			break
		}
		streak++
	}
	return streak
}

// WeeklyImprovement returns the percentage change in mean daily steps between
// the trailing 7-day window and the 7 days before it. Either window being
// empty, or a zero prior mean, yields 0 to keep the division safe.
func WeeklyImprovement(records []domain.HealthRecord, now time.Time) float64 {
	thisFrom := domain.DaysAgo(now, 6)
	today := domain.Day(now)
	prevFrom := domain.DaysAgo(now, 13)
	prevTo := domain.DaysAgo(now, 7)

	current := meanDailySteps(records, thisFrom, today)
	previous := meanDailySteps(records, prevFrom, prevTo)
	if current < 0 || previous <= 0 {
		return 0
	}
	return round1((current - previous) / previous * 100)
}

// meanDailySteps averages summed steps per day over [from, to]. Returns -1
// when no day in the window has step data.
func meanDailySteps(records []domain.HealthRecord, from, to string) float64 {
	perDay := make(map[string]int)
	for _, r := range records {
		if r.Steps == nil || r.Date < from || r.Date > to {
			continue
		}
		perDay[r.Date] += *r.Steps
	}
	if len(perDay) == 0 {
		return -1
	}
	var total int
	for _, v := range perDay {
		total += v
	}
	return float64(total) / float64(len(perDay))
}

// weightTolerance is the relative band within which a weight counts as on-goal.
const weightTolerance = 0.05

// GoalCompletion scores today's snapshot against the configured goals.
func GoalCompletion(snap Snapshot, goals domain.Goals) Completion {
	var c Completion

	c.Total++
	if snap.Steps != nil && *snap.Steps >= goals.StepsGoal {
		c.Achieved++
	}
	c.Total++
	if snap.WaterIntake != nil && *snap.WaterIntake >= goals.WaterGoal {
		c.Achieved++
	}
	c.Total++
	if snap.SleepHours != nil && *snap.SleepHours >= goals.SleepGoal {
		c.Achieved++
	}
	if goals.WeightGoal != nil {
		c.Total++
		if snap.Weight != nil && math.Abs(*snap.Weight-*goals.WeightGoal) <= *goals.WeightGoal*weightTolerance {
			c.Achieved++
		}
	}
	return c
}

// RollupByDay groups records into per-day aggregates, newest day first,
// using the same reduction rules as TodaySnapshot.
func RollupByDay(records []domain.HealthRecord) []domain.DayAggregate {
	days := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		days = append(days, r.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	out := make([]domain.DayAggregate, 0, len(days))
	for _, day := range days {
		snap := TodaySnapshot(records, day)
		out = append(out, domain.DayAggregate{
			Date:        day,
			Steps:       snap.Steps,
			WaterIntake: snap.WaterIntake,
			SleepHours:  snap.SleepHours,
			Weight:      snap.Weight,
			EntryCount:  snap.EntryCount,
		})
	}
	return out
}

// Merge deduplicates the union of local and remote record collections. The
// remote ID wins as identity when both sides carry it; records without one
// fall back to the (date, createdAt) pair. Local entries take precedence so
// an unsynced flag is never lost to a remote copy.
func Merge(local, remote []domain.HealthRecord) []domain.HealthRecord {
	type key struct {
		id        string
		date      string
		createdAt int64
	}
	keyOf := func(r domain.HealthRecord) key {
		if r.ID != "" {
			return key{id: r.ID}
		}
		return key{date: r.Date, createdAt: r.CreatedAt.UnixNano()}
	}

	seen := make(map[key]struct{}, len(local)+len(remote))
	out := make([]domain.HealthRecord, 0, len(local)+len(remote))
	for _, r := range local {
		seen[keyOf(r)] = struct{}{}
		out = append(out, r)
	}
	for _, r := range remote {
		if _, ok := seen[keyOf(r)]; ok {
			continue
		}
		seen[keyOf(r)] = struct{}{}
		out = append(out, r)
	}
	return out
}

func addInt(dst *int, v int) *int {
	if dst == nil {
		return &v
	}
	*dst += v
	return dst
}

func addFloat(dst *float64, v float64) *float64 {
	if dst == nil {
		return &v
	}
	*dst += v
	return dst
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
