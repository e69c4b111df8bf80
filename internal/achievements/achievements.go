// Package achievements evaluates milestone badges against the full record
// history. Rules are pure predicates; the only mutable state is the persisted
// set of already-notified achievement IDs.
package achievements

import (
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/aggregate"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

// Achievement describes a single rule outcome.
type Achievement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	XP       int    `json:"xp"`
	Unlocked bool   `json:"unlocked"`
}

// Input bundles the immutable state a rule may inspect.
type Input struct {
	Records []domain.HealthRecord
	Goals   domain.Goals
	Today   string
}

type rule struct {
	id        string
	title     string
	xp        int
	predicate func(Input) bool
}

var rules = []rule{
	{
		id:    "first_entry",
		title: "First Entry",
		xp:    10,
		predicate: func(in Input) bool {
			return len(in.Records) >= 1
		},
	},
	{
		id:    "streak_7",
		title: "One Week Streak",
		xp:    50,
		predicate: func(in Input) bool {
			return aggregate.CurrentStreak(in.Records, in.Today) >= 7
		},
	},
	{
		id:    "streak_30",
		title: "One Month Streak",
		xp:    200,
		predicate: func(in Input) bool {
			return aggregate.CurrentStreak(in.Records, in.Today) >= 30
		},
	},
	{
		id:    "steps_10k",
		title: "10K Steps Day",
		xp:    25,
		predicate: func(in Input) bool {
			return maxDailySteps(in.Records) >= 10000
		},
	},
	{
		id:    "entries_100",
		title: "Century Logger",
		xp:    100,
		predicate: func(in Input) bool {
			return len(in.Records) >= 100
		},
	},
	{
		id:    "all_goals_day",
		title: "Perfect Day",
		xp:    75,
		predicate: func(in Input) bool {
			for _, day := range recordDays(in.Records) {
				snap := aggregate.TodaySnapshot(in.Records, day)
				c := aggregate.GoalCompletion(snap, in.Goals)
				if c.Total > 0 && c.Achieved == c.Total {
					return true
				}
			}
			return false
		},
	},
	{
		id:    "hydration_week",
		title: "Hydration Hero",
		xp:    40,
		predicate: func(in Input) bool {
			start, err := domain.ParseDay(in.Today)
			if err != nil {
				return false
			}
			for i := 0; i < 7; i++ {
				day := domain.Day(start.AddDate(0, 0, -i))
				snap := aggregate.TodaySnapshot(in.Records, day)
				if snap.WaterIntake == nil || *snap.WaterIntake < in.Goals.WaterGoal {
					return false
				}
			}
			return true
		},
	},
	{
		id:    "well_rested",
		title: "Well Rested",
		xp:    30,
		predicate: func(in Input) bool {
			for _, day := range recordDays(in.Records) {
				snap := aggregate.TodaySnapshot(in.Records, day)
				if snap.SleepHours != nil && *snap.SleepHours >= 8 {
					return true
				}
			}
			return false
		},
	},
}

// Evaluate runs every rule against the history. Results are recomputed on
// each call; nothing about unlock state is persisted.
func Evaluate(in Input) []Achievement {
	out := make([]Achievement, 0, len(rules))
	for _, r := range rules {
		out = append(out, Achievement{
			ID:       r.id,
			Title:    r.title,
			XP:       r.xp,
			Unlocked: r.predicate(in),
		})
	}
	return out
}

// TotalXP sums the XP of unlocked achievements.
func TotalXP(achievements []Achievement) int {
	total := 0
	for _, a := range achievements {
		if a.Unlocked {
			total += a.XP
		}
	}
	return total
}

// SeenStore persists which achievement IDs have already been announced.
type SeenStore interface {
	SeenAchievements() (map[string]struct{}, error)
	MarkAchievementSeen(id string) error
}

// Notifier reports newly unlocked achievements exactly once per ID, using the
// store to survive restarts.
type Notifier struct {
	store SeenStore
}

// NewNotifier constructs a Notifier.
func NewNotifier(store SeenStore) *Notifier {
	return &Notifier{store: store}
}

// Unseen filters achievements down to those unlocked but not yet announced,
// marking each as seen. Storage errors surface to the caller with whatever
// was collected so far.
func (n *Notifier) Unseen(achievements []Achievement) ([]Achievement, error) {
	seen, err := n.store.SeenAchievements()
	if err != nil {
		return nil, err
	}

	fresh := make([]Achievement, 0, len(achievements))
	for _, a := range achievements {
		if !a.Unlocked {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		if err := n.store.MarkAchievementSeen(a.ID); err != nil {
			return fresh, err
		}
		fresh = append(fresh, a)
	}
	return fresh, nil
}

func maxDailySteps(records []domain.HealthRecord) int {
	perDay := make(map[string]int)
	for _, r := range records {
		if r.Steps != nil {
			perDay[r.Date] += *r.Steps
		}
	}
	max := 0
	for _, v := range perDay {
		if v > max {
			max = v
		}
	}
	return max
}

func recordDays(records []domain.HealthRecord) []string {
	seen := make(map[string]struct{}, len(records))
	days := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		days = append(days, r.Date)
	}
	return days
}
