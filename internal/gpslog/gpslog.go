// Package gpslog decodes NMEA track logs into timestamped position fixes.
package gpslog

import (
	"bufio"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"

	"github.com/wardrive/apmapper/internal/models"
)

// ErrNoFixes means the stream contained GPS data but not a single parseable
// position fix, leaving nothing to synchronize against.
var ErrNoFixes = errors.New("gpslog: no valid fixes in stream")

// Stats counts line-level outcomes for one track log.
type Stats struct {
	Lines   int
	Dropped int
	Fixes   int
}

// Parse reads a line-oriented NMEA stream and returns its fixes sorted by
// timestamp. RMC sentences carry date, time and coordinates; GGA sentences
// carry altitude and fix quality and are merged into the fix with the same
// timestamp. Lines that fail the checksum or are of an unrecognized type are
// counted and dropped, never fatal.
func Parse(r io.Reader, logger zerolog.Logger) ([]models.PositionFix, Stats, error) {
	var stats Stats

	fixes := make(map[int64]*models.PositionFix)
	type ggaData struct {
		altitude float64
		quality  string
	}
	pending := make(map[int64]ggaData)

	var (
		curDate  nmea.Date
		haveDate bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// gpspipe interleaves JSON status objects with raw sentences.
		if strings.HasPrefix(line, "{") {
			continue
		}
		stats.Lines++

		sentence, err := nmea.Parse(line)
		if err != nil {
			stats.Dropped++
			logger.Trace().Err(err).Msg("dropped NMEA line")
			continue
		}

		switch s := sentence.(type) {
		case nmea.RMC:
			if s.Validity != "A" || !s.Date.Valid || !s.Time.Valid {
				stats.Dropped++
				continue
			}
			curDate, haveDate = s.Date, true
			ts := sentenceTime(s.Date, s.Time)
			key := ts.UnixMilli()
			fix, ok := fixes[key]
			if !ok {
				fix = &models.PositionFix{Timestamp: ts}
				fixes[key] = fix
			}
			fix.Latitude = s.Latitude
			fix.Longitude = s.Longitude
			if gga, ok := pending[key]; ok {
				fix.Altitude = gga.altitude
				fix.HasAltitude = true
				fix.Quality = gga.quality
				delete(pending, key)
			}
		case nmea.GGA:
			if !s.Time.Valid || !haveDate {
				stats.Dropped++
				continue
			}
			ts := sentenceTime(curDate, s.Time)
			key := ts.UnixMilli()
			if fix, ok := fixes[key]; ok {
				fix.Altitude = s.Altitude
				fix.HasAltitude = true
				fix.Quality = s.FixQuality
			} else {
				pending[key] = ggaData{altitude: s.Altitude, quality: s.FixQuality}
			}
		default:
			stats.Dropped++
		}
	}
	if err := scanner.Err(); err != nil {
		// Mid-stream I/O failure is per-file recoverable: keep what parsed.
		logger.Warn().Err(err).Msg("track log read failed mid-stream, keeping partial fixes")
	}

	out := make([]models.PositionFix, 0, len(fixes))
	for _, fix := range fixes {
		out = append(out, *fix)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	stats.Fixes = len(out)

	if len(out) == 0 {
		return nil, stats, ErrNoFixes
	}
	return out, stats, nil
}

func sentenceTime(d nmea.Date, t nmea.Time) time.Time {
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
