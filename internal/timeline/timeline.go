// Package timeline attaches geographic positions to raw observations by
// joining them against a session's GPS fix stream.
package timeline

import (
	"sort"
	"time"

	"github.com/wardrive/apmapper/internal/models"
)

// DefaultTolerance is the maximum allowed gap between an observation and a
// fix for the fix to be considered usable.
const DefaultTolerance = 30 * time.Second

// Resolve returns one GeolocatedObservation per raw observation. Fixes must
// be sorted by timestamp ascending. When the two fixes bracketing an
// observation both fall inside the tolerance window the position is linearly
// interpolated by elapsed-time fraction; a single in-tolerance fix is used
// directly; otherwise the position is nil. Position-less observations are
// still returned since their signal samples remain usable.
func Resolve(observations []models.RawObservation, fixes []models.PositionFix, tolerance time.Duration) []models.GeolocatedObservation {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	out := make([]models.GeolocatedObservation, 0, len(observations))
	for _, obs := range observations {
		geo := models.GeolocatedObservation{RawObservation: obs}
		geo.Position, geo.LastKnown = resolveAt(obs.Timestamp, fixes, tolerance)
		out = append(out, geo)
	}
	return out
}

// resolveAt locates the fixes bracketing t and derives both the in-tolerance
// position and the nearest fix regardless of tolerance.
func resolveAt(t time.Time, fixes []models.PositionFix, tolerance time.Duration) (position, nearest *models.LatLng) {
	if len(fixes) == 0 {
		return nil, nil
	}

	// First fix at or after t.
	idx := sort.Search(len(fixes), func(i int) bool {
		return !fixes[i].Timestamp.Before(t)
	})

	var before, after *models.PositionFix
	if idx > 0 {
		before = &fixes[idx-1]
	}
	if idx < len(fixes) {
		after = &fixes[idx]
	}

	gapBefore := time.Duration(-1)
	if before != nil {
		gapBefore = t.Sub(before.Timestamp)
	}
	gapAfter := time.Duration(-1)
	if after != nil {
		gapAfter = after.Timestamp.Sub(t)
	}

	switch {
	case before != nil && after != nil:
		if gapBefore <= gapAfter {
			nearest = latLng(before)
		} else {
			nearest = latLng(after)
		}
	case before != nil:
		nearest = latLng(before)
	case after != nil:
		nearest = latLng(after)
	}

	beforeOK := before != nil && gapBefore <= tolerance
	afterOK := after != nil && gapAfter <= tolerance

	switch {
	case beforeOK && afterOK:
		return interpolate(before, after, t), nearest
	case beforeOK:
		return latLng(before), nearest
	case afterOK:
		return latLng(after), nearest
	default:
		return nil, nearest
	}
}

func interpolate(a, b *models.PositionFix, t time.Time) *models.LatLng {
	span := b.Timestamp.Sub(a.Timestamp)
	if span <= 0 {
		return latLng(a)
	}
	ratio := float64(t.Sub(a.Timestamp)) / float64(span)
	return &models.LatLng{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*ratio,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*ratio,
	}
}

func latLng(f *models.PositionFix) *models.LatLng {
	return &models.LatLng{Latitude: f.Latitude, Longitude: f.Longitude}
}
