package models

// Settings is an immutable snapshot of the business parameters stored in the
// settings table. Loaded per operation and passed by value so a mid-flight
// change never splits one calculation across two parameter sets.
type Settings struct {
	MonthlyInterestPct float64 `json:"monthly_interest_pct"`
	CashbackPct        float64 `json:"cashback_pct"`
	MinEntryPct        float64 `json:"min_entry_pct"`
}

// DefaultSettings are used when the settings table is missing a key.
func DefaultSettings() Settings {
	return Settings{
		MonthlyInterestPct: 3.5,
		CashbackPct:        1.5,
		MinEntryPct:        15,
	}
}
