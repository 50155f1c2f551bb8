package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wardrive/apmapper/internal/models"
)

func rec(bssid byte, observations int, password string, estimated bool) *models.AccessPoint {
	ap := &models.AccessPoint{
		BSSID:        models.BSSID{0xaa, 0, 0, 0, 0, bssid},
		Password:     password,
		Observations: make([]models.GeolocatedObservation, observations),
	}
	if estimated {
		ap.Estimated = &models.EstimatedPosition{
			LatLng: models.LatLng{Latitude: 48, Longitude: 2},
			Method: "centroid",
		}
	}
	return ap
}

func TestSelect(t *testing.T) {
	records := []*models.AccessPoint{
		rec(1, 5, "hunter22", true),
		rec(2, 1, "", true),
		rec(3, 8, "", true),
		rec(4, 9, "letmein", false), // no position, never exported
	}

	tests := []struct {
		name string
		cfg  Config
		want []byte
	}{
		{
			name: "disabled passes everything positioned",
			cfg:  Config{},
			want: []byte{1, 2, 3},
		},
		{
			name: "minimum observation count",
			cfg:  Config{Enabled: true, MinObservations: 3},
			want: []byte{1, 3},
		},
		{
			name: "require password",
			cfg:  Config{Enabled: true, RequirePassword: true},
			want: []byte{1},
		},
		{
			name: "both criteria",
			cfg:  Config{Enabled: true, MinObservations: 6, RequirePassword: true},
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []byte
			for _, ap := range Select(records, tc.cfg) {
				got = append(got, ap.BSSID[5])
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
