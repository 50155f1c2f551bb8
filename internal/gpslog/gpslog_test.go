package gpslog

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentence appends the NMEA checksum to a sentence body.
func sentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func TestParse_RMCSentences(t *testing.T) {
	input := strings.Join([]string{
		sentence("GPRMC,120000.00,A,4800.000,N,00200.000,E,0.5,0.0,010624,,,A"),
		sentence("GPRMC,120010.00,A,4800.600,N,00200.600,E,0.5,0.0,010624,,,A"),
	}, "\n")

	fixes, stats, err := Parse(strings.NewReader(input), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.Equal(t, 2, stats.Fixes)
	assert.Equal(t, 0, stats.Dropped)

	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), fixes[0].Timestamp)
	assert.InDelta(t, 48.0, fixes[0].Latitude, 1e-9)
	assert.InDelta(t, 2.0, fixes[0].Longitude, 1e-9)
	assert.InDelta(t, 48.01, fixes[1].Latitude, 1e-9)
}

func TestParse_MergesGGAIntoSameTimestamp(t *testing.T) {
	input := strings.Join([]string{
		sentence("GPRMC,120000.00,A,4800.000,N,00200.000,E,0.5,0.0,010624,,,A"),
		sentence("GPGGA,120000.00,4800.000,N,00200.000,E,1,08,0.9,123.4,M,46.9,M,,"),
	}, "\n")

	fixes, _, err := Parse(strings.NewReader(input), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.True(t, fixes[0].HasAltitude)
	assert.InDelta(t, 123.4, fixes[0].Altitude, 1e-9)
	assert.Equal(t, "1", fixes[0].Quality)
}

func TestParse_MergesGGAArrivingBeforeRMC(t *testing.T) {
	input := strings.Join([]string{
		sentence("GPRMC,115959.00,A,4759.990,N,00159.990,E,0.5,0.0,010624,,,A"),
		sentence("GPGGA,120000.00,4800.000,N,00200.000,E,1,08,0.9,50.0,M,46.9,M,,"),
		sentence("GPRMC,120000.00,A,4800.000,N,00200.000,E,0.5,0.0,010624,,,A"),
	}, "\n")

	fixes, _, err := Parse(strings.NewReader(input), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.True(t, fixes[1].HasAltitude)
	assert.InDelta(t, 50.0, fixes[1].Altitude, 1e-9)
}

func TestParse_DropsBadChecksumAndJunk(t *testing.T) {
	good := sentence("GPRMC,120000.00,A,4800.000,N,00200.000,E,0.5,0.0,010624,,,A")
	bad := strings.Replace(good, "4800", "4801", 1) // checksum now wrong

	input := strings.Join([]string{
		`{"class":"TPV","mode":3}`, // gpspipe status object
		bad,
		"complete garbage",
		good,
	}, "\n")

	fixes, stats, err := Parse(strings.NewReader(input), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.InDelta(t, 48.0, fixes[0].Latitude, 1e-9)
	assert.Equal(t, 2, stats.Dropped)
}

func TestParse_SortsByTimestamp(t *testing.T) {
	input := strings.Join([]string{
		sentence("GPRMC,120010.00,A,4800.600,N,00200.600,E,0.5,0.0,010624,,,A"),
		sentence("GPRMC,120000.00,A,4800.000,N,00200.000,E,0.5,0.0,010624,,,A"),
	}, "\n")

	fixes, _, err := Parse(strings.NewReader(input), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.True(t, fixes[0].Timestamp.Before(fixes[1].Timestamp))
}

func TestParse_NoValidFixesIsFatal(t *testing.T) {
	input := "garbage\nmore garbage\n"
	_, stats, err := Parse(strings.NewReader(input), zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoFixes)
	assert.Equal(t, 2, stats.Dropped)
}

func TestParse_VoidFixIsDropped(t *testing.T) {
	input := sentence("GPRMC,120000.00,V,4800.000,N,00200.000,E,0.5,0.0,010624,,,N")
	_, stats, err := Parse(strings.NewReader(input), zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoFixes)
	assert.Equal(t, 1, stats.Dropped)
}
