package models

// EstimatedPosition is the single best-estimate coordinate computed for an
// access point, tagged with the method that produced it.
type EstimatedPosition struct {
	LatLng
	Method string
}

// AccessPoint is the per-BSSID record built up during aggregation. The
// observation list is append-only while sessions are folded in and frozen
// before estimation.
type AccessPoint struct {
	BSSID        BSSID
	SSID         string
	Security     Security
	Channel      uint8
	Vendor       string
	Password     string
	Observations []GeolocatedObservation
	Estimated    *EstimatedPosition
}
