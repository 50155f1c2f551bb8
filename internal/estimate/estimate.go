// Package estimate reduces an access point's observation history to a single
// best-estimate coordinate.
package estimate

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/wardrive/apmapper/internal/models"
)

// Path-loss model used to turn a signal reading into a rough distance for
// the trilateration refinement.
const (
	rssiAtOneMeter    = -35.0
	pathLossExponent  = 2.5
	earthRadiusMeters = 6378000.0
)

// DefaultMinSpacingMeters is the default spacing below which near-duplicate
// observation points are thinned before estimation.
const DefaultMinSpacingMeters = 5.0

// Method selects the estimation algorithm for well-observed access points.
type Method string

const (
	// MethodCentroid is the signal-strength-weighted centroid.
	MethodCentroid Method = "centroid"
	// MethodTrilateration refines the centroid by gradient descent against
	// path-loss distance estimates. Needs at least three positioned
	// observations; degrades to the centroid otherwise.
	MethodTrilateration Method = "trilateration"
)

// Options configures one estimation run.
type Options struct {
	Method Method
	// MinSpacingMeters thins observations closer than this to an already
	// kept, stronger one. Zero disables thinning.
	MinSpacingMeters float64
}

type sample struct {
	pos    models.LatLng
	signal int8
}

// Estimate computes the estimated position for one record. It is a pure
// function of the observation list: it never mutates the record and
// re-running it yields the same answer. A nil result means the record has no
// position data at all and must be excluded from spatial exports.
func Estimate(rec *models.AccessPoint, opts Options) *models.EstimatedPosition {
	samples := positionedSamples(rec.Observations)
	if opts.MinSpacingMeters > 0 {
		samples = thin(samples, opts.MinSpacingMeters)
	}

	switch n := len(samples); {
	case n == 0:
		return lastKnown(rec.Observations)
	case n == 1:
		return &models.EstimatedPosition{LatLng: samples[0].pos, Method: "single"}
	case n >= 3 && opts.Method == MethodTrilateration:
		return trilaterate(samples)
	default:
		return &models.EstimatedPosition{LatLng: weightedCentroid(samples), Method: string(MethodCentroid)}
	}
}

// Weight converts a dBm reading into a linear power-proportional weight so
// that the strongest signals dominate the centroid.
func Weight(signalDBM int8) float64 {
	return math.Pow(10, float64(signalDBM)/10)
}

func positionedSamples(observations []models.GeolocatedObservation) []sample {
	var out []sample
	for _, obs := range observations {
		if obs.Position != nil {
			out = append(out, sample{pos: *obs.Position, signal: obs.SignalDBM})
		}
	}
	return out
}

// lastKnown falls back to the most recent observation carrying any position
// data. The observation list is chronological, so the scan runs backwards.
func lastKnown(observations []models.GeolocatedObservation) *models.EstimatedPosition {
	for i := len(observations) - 1; i >= 0; i-- {
		if lk := observations[i].LastKnown; lk != nil {
			return &models.EstimatedPosition{LatLng: *lk, Method: "last-known"}
		}
	}
	return nil
}

func weightedCentroid(samples []sample) models.LatLng {
	var totalWeight, lat, lng float64
	for _, s := range samples {
		w := Weight(s.signal)
		totalWeight += w
		lat += s.pos.Latitude * w
		lng += s.pos.Longitude * w
	}
	return models.LatLng{Latitude: lat / totalWeight, Longitude: lng / totalWeight}
}

// thin drops samples closer than minSpacing to an already kept, stronger
// sample, so a burst of beacons caught at one standstill does not swamp the
// weighting. Strongest samples are considered first.
func thin(samples []sample, minSpacing float64) []sample {
	if len(samples) <= 1 {
		return samples
	}
	ordered := make([]sample, len(samples))
	copy(ordered, samples)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].signal > ordered[j-1].signal; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	kept := ordered[:1]
	for _, s := range ordered[1:] {
		tooClose := false
		for _, k := range kept {
			if distanceMeters(s.pos, k.pos) < minSpacing {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, s)
		}
	}
	return kept
}

// distanceMeters is the great-circle distance between two coordinates.
func distanceMeters(a, b models.LatLng) float64 {
	aa := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	bb := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return aa.Distance(bb).Radians() * earthRadiusMeters
}

// signalDistanceMeters estimates transmitter distance from a signal reading
// via the log-distance path-loss model.
func signalDistanceMeters(signalDBM int8) float64 {
	return math.Pow(10, (rssiAtOneMeter-float64(signalDBM))/(10*pathLossExponent))
}

// trilaterate refines the weighted centroid by gradient descent on the
// squared error between path-loss distance estimates and the flat-earth
// distance to each observation point.
func trilaterate(samples []sample) *models.EstimatedPosition {
	const (
		maxIterations        = 100
		learningRate         = 0.001
		convergenceThreshold = 0.000001
		metersPerDegreeLat   = 110540.0
		metersPerDegreeLon   = 111320.0
	)

	initial := weightedCentroid(samples)
	estLat, estLng := initial.Latitude, initial.Longitude

	for i := 0; i < maxIterations; i++ {
		var gradLat, gradLng, totalWeight float64

		for _, s := range samples {
			cosLat := math.Cos(estLat * math.Pi / 180)
			if math.Abs(cosLat) < 0.01 {
				continue
			}

			dx := (estLng - s.pos.Longitude) * metersPerDegreeLon * cosLat
			dy := (estLat - s.pos.Latitude) * metersPerDegreeLat
			calculated := math.Sqrt(dx*dx + dy*dy)
			if calculated < 0.1 {
				continue
			}

			errMeters := calculated - signalDistanceMeters(s.signal)

			w := (float64(s.signal) + 100) / 70
			w = math.Min(math.Max(w, 0), 1)
			w *= w

			gradLat += w * errMeters * dy / calculated / metersPerDegreeLat
			gradLng += w * errMeters * dx / calculated / (metersPerDegreeLon * cosLat)
			totalWeight += w
		}

		if totalWeight == 0 {
			return &models.EstimatedPosition{LatLng: initial, Method: string(MethodCentroid)}
		}

		updateLat := gradLat / totalWeight * learningRate
		updateLng := gradLng / totalWeight * learningRate
		estLat -= updateLat
		estLng -= updateLng

		if math.Abs(updateLat) < convergenceThreshold && math.Abs(updateLng) < convergenceThreshold {
			break
		}
	}

	return &models.EstimatedPosition{
		LatLng: models.LatLng{Latitude: estLat, Longitude: estLng},
		Method: string(MethodTrilateration),
	}
}
