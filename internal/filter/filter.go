// Package filter selects which access-point records are worth exporting.
package filter

import "github.com/wardrive/apmapper/internal/models"

// Config holds the caller-supplied interest criteria. The zero value passes
// every record that has a resolvable estimated position.
type Config struct {
	Enabled bool
	// MinObservations, when positive, requires at least that many
	// observations on a record.
	MinObservations int
	// RequirePassword keeps only records with a bound password.
	RequirePassword bool
}

// Select returns the subset of records worth exporting. Records without an
// estimated position are always excluded: they cannot be placed on a map.
func Select(records []*models.AccessPoint, cfg Config) []*models.AccessPoint {
	out := make([]*models.AccessPoint, 0, len(records))
	for _, rec := range records {
		if rec.Estimated == nil {
			continue
		}
		if cfg.Enabled {
			if cfg.MinObservations > 0 && len(rec.Observations) < cfg.MinObservations {
				continue
			}
			if cfg.RequirePassword && rec.Password == "" {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}
