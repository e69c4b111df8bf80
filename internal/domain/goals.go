package domain

// Default goal targets used when a user has never saved goals.
const (
	DefaultStepsGoal = 10000
	DefaultWaterGoal = 2.0
	DefaultSleepGoal = 8.0
)

// Goals holds the per-user targets. WeightGoal has no default and stays nil
// until the user sets one.
type Goals struct {
	UserID     string   `json:"userId,omitempty"`
	StepsGoal  int      `json:"stepsGoal"`
	WaterGoal  float64  `json:"waterGoal"`
	SleepGoal  float64  `json:"sleepGoal"`
	WeightGoal *float64 `json:"weightGoal,omitempty"`
}

// DefaultGoals returns the hardcoded fallback targets.
func DefaultGoals() Goals {
	return Goals{
		StepsGoal: DefaultStepsGoal,
		WaterGoal: DefaultWaterGoal,
		SleepGoal: DefaultSleepGoal,
	}
}

// FillDefaults replaces unset fields with the hardcoded defaults. Defaults
// fill only omitted fields at creation, not at every read.
func (g Goals) FillDefaults() Goals {
	if g.StepsGoal <= 0 {
		g.StepsGoal = DefaultStepsGoal
	}
	if g.WaterGoal <= 0 {
		g.WaterGoal = DefaultWaterGoal
	}
	if g.SleepGoal <= 0 {
		g.SleepGoal = DefaultSleepGoal
	}
	return g
}
