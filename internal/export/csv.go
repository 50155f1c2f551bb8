package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wardrive/apmapper/internal/models"
)

var csvHeader = []string{
	"bssid", "ssid", "security", "latitude", "longitude",
	"observations", "method", "min_rssi", "max_rssi", "avg_rssi",
	"vendor", "password",
}

// WriteCSV renders one row per record that has an estimated position.
func WriteCSV(w io.Writer, records []*models.AccessPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, rec := range records {
		if rec.Estimated == nil {
			continue
		}
		minRSSI, maxRSSI, avgRSSI := signalStats(rec.Observations)
		row := []string{
			rec.BSSID.String(),
			rec.SSID,
			rec.Security.String(),
			strconv.FormatFloat(rec.Estimated.Latitude, 'f', 6, 64),
			strconv.FormatFloat(rec.Estimated.Longitude, 'f', 6, 64),
			strconv.Itoa(len(rec.Observations)),
			rec.Estimated.Method,
			strconv.Itoa(int(minRSSI)),
			strconv.Itoa(int(maxRSSI)),
			fmt.Sprintf("%.1f", avgRSSI),
			rec.Vendor,
			rec.Password,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func signalStats(observations []models.GeolocatedObservation) (minRSSI, maxRSSI int8, avg float64) {
	if len(observations) == 0 {
		return 0, 0, 0
	}
	minRSSI, maxRSSI = observations[0].SignalDBM, observations[0].SignalDBM
	sum := 0.0
	for _, obs := range observations {
		if obs.SignalDBM < minRSSI {
			minRSSI = obs.SignalDBM
		}
		if obs.SignalDBM > maxRSSI {
			maxRSSI = obs.SignalDBM
		}
		sum += float64(obs.SignalDBM)
	}
	return minRSSI, maxRSSI, sum / float64(len(observations))
}
