package domain

// DayAggregate is the per-day rollup served by the aggregation endpoint:
// cumulative metrics summed, weight carried from the day's latest entry.
type DayAggregate struct {
	Date        string   `json:"date"`
	Steps       *int     `json:"steps,omitempty"`
	WaterIntake *float64 `json:"waterIntake,omitempty"`
	SleepHours  *float64 `json:"sleepHours,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	EntryCount  int      `json:"entryCount"`
}
