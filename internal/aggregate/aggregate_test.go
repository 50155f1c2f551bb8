package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrive/apmapper/internal/models"
)

var (
	apOne = models.BSSID{0xaa, 0, 0, 0, 0, 1}
	apTwo = models.BSSID{0xaa, 0, 0, 0, 0, 2}
	base  = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func geoObs(bssid models.BSSID, offset time.Duration, ssid string, signal int8) models.GeolocatedObservation {
	return models.GeolocatedObservation{
		RawObservation: models.RawObservation{
			BSSID:     bssid,
			SSID:      ssid,
			SignalDBM: signal,
			Timestamp: base.Add(offset),
		},
		Position: &models.LatLng{Latitude: 48.0, Longitude: 2.0},
	}
}

func TestWorkingSet_GroupsByBSSID(t *testing.T) {
	ws := NewWorkingSet(Options{})
	ws.Add(geoObs(apOne, 0, "NetA", -50))
	ws.Add(geoObs(apOne, time.Second, "NetA", -55))
	ws.Add(geoObs(apTwo, 0, "NetB", -70))
	ws.Freeze()

	assert.Equal(t, 2, ws.Len())
	rec, ok := ws.Get(apOne)
	require.True(t, ok)
	assert.Len(t, rec.Observations, 2)
}

func TestWorkingSet_MergeIsOrderIndependent(t *testing.T) {
	sessions := [][]models.GeolocatedObservation{
		{geoObs(apOne, 0, "NetA", -50), geoObs(apTwo, time.Second, "NetB", -70)},
		{geoObs(apOne, 2*time.Second, "", -60)},
		{geoObs(apOne, time.Second, "NetA", -40), geoObs(apTwo, 3*time.Second, "NetB", -72)},
	}

	fold := func(order []int) *WorkingSet {
		total := NewWorkingSet(Options{})
		for _, i := range order {
			partial := NewWorkingSet(Options{})
			partial.AddAll(sessions[i])
			total.Merge(partial)
		}
		total.Freeze()
		return total
	}

	sequential := fold([]int{0, 1, 2})
	reversed := fold([]int{2, 1, 0})
	shuffled := fold([]int{1, 2, 0})

	assert.Equal(t, sequential.Records(), reversed.Records())
	assert.Equal(t, sequential.Records(), shuffled.Records())
}

func TestWorkingSet_MergeOfPartitionsMatchesSequential(t *testing.T) {
	all := []models.GeolocatedObservation{
		geoObs(apOne, 0, "NetA", -50),
		geoObs(apOne, time.Second, "NetA", -55),
		geoObs(apTwo, 0, "NetB", -70),
		geoObs(apTwo, 2*time.Second, "NetB", -71),
	}

	sequential := NewWorkingSet(Options{})
	sequential.AddAll(all)
	sequential.Freeze()

	groupA := NewWorkingSet(Options{})
	groupA.AddAll(all[:2])
	groupB := NewWorkingSet(Options{})
	groupB.AddAll(all[2:])

	combined := NewWorkingSet(Options{})
	combined.Merge(groupB)
	combined.Merge(groupA)
	combined.Freeze()

	assert.Equal(t, sequential.Records(), combined.Records())
}

func TestWorkingSet_SSIDIsMostRecentNonEmpty(t *testing.T) {
	ws := NewWorkingSet(Options{})
	ws.Add(geoObs(apOne, 0, "OldName", -50))
	ws.Add(geoObs(apOne, time.Second, "NewName", -50))
	ws.Add(geoObs(apOne, 2*time.Second, "", -50)) // hidden beacon later on
	ws.Freeze()

	rec, _ := ws.Get(apOne)
	assert.Equal(t, "NewName", rec.SSID)
}

func TestWorkingSet_NoDeduplicationByDefault(t *testing.T) {
	ws := NewWorkingSet(Options{})
	ws.Add(geoObs(apOne, 0, "NetA", -50))
	ws.Add(geoObs(apOne, 0, "NetA", -50))
	ws.Freeze()

	rec, _ := ws.Get(apOne)
	assert.Len(t, rec.Observations, 2)
}

func TestWorkingSet_CollapseDuplicatesKeepsStrongest(t *testing.T) {
	ws := NewWorkingSet(Options{CollapseDuplicates: true})
	ws.Add(geoObs(apOne, 0, "NetA", -80))
	ws.Add(geoObs(apOne, 0, "NetA", -42))
	ws.Add(geoObs(apOne, time.Second, "NetA", -60))
	ws.Freeze()

	rec, _ := ws.Get(apOne)
	require.Len(t, rec.Observations, 2)
	assert.Equal(t, int8(-42), rec.Observations[0].SignalDBM)
	assert.Equal(t, int8(-60), rec.Observations[1].SignalDBM)
}

func TestWorkingSet_DerivedSummaryFields(t *testing.T) {
	first := geoObs(apOne, 0, "NetA", -50)
	first.Security = models.SecurityWPA2
	first.Channel = 6
	second := geoObs(apOne, time.Second, "NetA", -50)
	second.Security = models.SecurityUnknown
	second.Channel = 0

	ws := NewWorkingSet(Options{})
	ws.Add(second)
	ws.Add(first)
	ws.Freeze()

	rec, _ := ws.Get(apOne)
	assert.Equal(t, models.SecurityWPA2, rec.Security)
	assert.Equal(t, uint8(6), rec.Channel)
}

func TestWorkingSet_RecordsSortedByBSSID(t *testing.T) {
	ws := NewWorkingSet(Options{})
	ws.Add(geoObs(apTwo, 0, "NetB", -70))
	ws.Add(geoObs(apOne, 0, "NetA", -50))
	ws.Freeze()

	records := ws.Records()
	require.Len(t, records, 2)
	assert.Equal(t, apOne, records[0].BSSID)
	assert.Equal(t, apTwo, records[1].BSSID)
}
