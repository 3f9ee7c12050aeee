package repositories

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type SettingsRepository struct {
	DB *sql.DB
}

// Load reads the settings table into a snapshot. Missing or malformed keys
// keep their defaults, so an empty table still yields a working snapshot.
func (r *SettingsRepository) Load(ctx context.Context) (models.Settings, error) {
	s := models.DefaultSettings()

	rows, err := r.DB.QueryContext(ctx, `SELECT name, value FROM settings`)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return s, err
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		switch name {
		case "monthly_interest_pct":
			s.MonthlyInterestPct = f
		case "cashback_pct":
			s.CashbackPct = f
		case "min_entry_pct":
			s.MinEntryPct = f
		}
	}
	return s, rows.Err()
}
