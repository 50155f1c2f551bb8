// Package aggregate folds geolocated observations from many capture sessions
// into per-access-point histories.
package aggregate

import (
	"sort"

	"github.com/wardrive/apmapper/internal/models"
)

// Options controls merge policy.
type Options struct {
	// CollapseDuplicates drops all but the strongest of several observations
	// of one BSSID sharing an exact timestamp, as produced by overlapping
	// captures of the same transmission. Off by default: repeated captures
	// are treated as independent samples.
	CollapseDuplicates bool
}

// WorkingSet is the single mutable aggregate of a batch run: a mapping from
// BSSID to its AccessPoint record. Observation lists grow append-only while
// sessions are folded in; Freeze orders them chronologically and derives the
// per-record summary fields, after which the set must not be mutated.
//
// Merging is associative and commutative: folding any partition of the
// sessions in any order yields the same frozen set.
type WorkingSet struct {
	opts    Options
	records map[models.BSSID]*models.AccessPoint
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet(opts Options) *WorkingSet {
	return &WorkingSet{
		opts:    opts,
		records: make(map[models.BSSID]*models.AccessPoint),
	}
}

// Add appends one observation to its BSSID's record, creating the record on
// first sight.
func (ws *WorkingSet) Add(obs models.GeolocatedObservation) {
	rec, ok := ws.records[obs.BSSID]
	if !ok {
		rec = &models.AccessPoint{BSSID: obs.BSSID}
		ws.records[obs.BSSID] = rec
	}
	rec.Observations = append(rec.Observations, obs)
}

// AddAll appends a session's observations.
func (ws *WorkingSet) AddAll(observations []models.GeolocatedObservation) {
	for _, obs := range observations {
		ws.Add(obs)
	}
}

// Merge folds another working set into this one. The other set must not be
// used afterwards.
func (ws *WorkingSet) Merge(other *WorkingSet) {
	for bssid, rec := range other.records {
		existing, ok := ws.records[bssid]
		if !ok {
			ws.records[bssid] = rec
			continue
		}
		existing.Observations = append(existing.Observations, rec.Observations...)
	}
}

// Len reports the number of distinct access points.
func (ws *WorkingSet) Len() int { return len(ws.records) }

// Get looks up one record.
func (ws *WorkingSet) Get(bssid models.BSSID) (*models.AccessPoint, bool) {
	rec, ok := ws.records[bssid]
	return rec, ok
}

// Freeze orders every record's observations chronologically, applies the
// duplicate policy, and derives the summary fields: SSID is the most
// recently observed non-empty value, security and channel the earliest known
// ones. The derivation runs over the sorted list, so the result is
// independent of the order sessions were merged in.
func (ws *WorkingSet) Freeze() {
	for _, rec := range ws.records {
		sortObservations(rec.Observations)
		if ws.opts.CollapseDuplicates {
			rec.Observations = collapseDuplicates(rec.Observations)
		}
		deriveSummary(rec)
	}
}

// Records returns the records ordered by BSSID for deterministic iteration.
func (ws *WorkingSet) Records() []*models.AccessPoint {
	out := make([]*models.AccessPoint, 0, len(ws.records))
	for _, rec := range ws.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].BSSID, out[j].BSSID
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return out
}

// sortObservations imposes a total order so that merge order never shows
// through: chronological, then weakest signal first, then SSID.
func sortObservations(obs []models.GeolocatedObservation) {
	sort.Slice(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Position == nil != (b.Position == nil) {
			return a.Position == nil
		}
		if a.SignalDBM != b.SignalDBM {
			return a.SignalDBM < b.SignalDBM
		}
		if a.SSID != b.SSID {
			return a.SSID < b.SSID
		}
		return a.Kind < b.Kind
	})
}

// collapseDuplicates keeps, for each exact timestamp, only the last entry in
// sort order: the positioned, strongest-signal one.
func collapseDuplicates(obs []models.GeolocatedObservation) []models.GeolocatedObservation {
	if len(obs) < 2 {
		return obs
	}
	out := obs[:0]
	for i, o := range obs {
		if i+1 < len(obs) && obs[i+1].Timestamp.Equal(o.Timestamp) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func deriveSummary(rec *models.AccessPoint) {
	rec.SSID = ""
	rec.Security = models.SecurityUnknown
	rec.Channel = 0
	for _, obs := range rec.Observations {
		if obs.SSID != "" {
			rec.SSID = obs.SSID
		}
		if rec.Security == models.SecurityUnknown && obs.Security != models.SecurityUnknown {
			rec.Security = obs.Security
		}
		if rec.Channel == 0 && obs.Channel != 0 {
			rec.Channel = obs.Channel
		}
	}
}
