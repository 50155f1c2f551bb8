package models

import "time"

// FrameKind identifies which 802.11 management frame an observation came
// from. The set is closed: only beacons and probe responses reliably carry
// the transmitting access point's BSSID.
type FrameKind uint8

const (
	FrameBeacon FrameKind = iota
	FrameProbeResponse
)

func (k FrameKind) String() string {
	switch k {
	case FrameBeacon:
		return "beacon"
	case FrameProbeResponse:
		return "probe-response"
	default:
		return "unknown"
	}
}

// Security is the advertised security mode of an access point, derived from
// beacon capability bits and information elements.
type Security uint8

const (
	SecurityUnknown Security = iota
	SecurityOpen
	SecurityWEP
	SecurityWPA
	SecurityWPA2
	SecurityWPA3
	SecurityWPA2WPA3
)

func (s Security) String() string {
	switch s {
	case SecurityOpen:
		return "Open"
	case SecurityWEP:
		return "WEP"
	case SecurityWPA:
		return "WPA"
	case SecurityWPA2:
		return "WPA2"
	case SecurityWPA3:
		return "WPA3"
	case SecurityWPA2WPA3:
		return "WPA2/WPA3"
	default:
		return "Unknown"
	}
}

// RawObservation is one decoded management frame from a capture file.
// Immutable once created.
type RawObservation struct {
	BSSID     BSSID
	SSID      string
	Channel   uint8
	SignalDBM int8
	Timestamp time.Time
	Kind      FrameKind
	Security  Security
}

// PositionFix is one timestamped GPS fix decoded from an NMEA track log.
type PositionFix struct {
	Timestamp   time.Time
	Latitude    float64
	Longitude   float64
	Altitude    float64
	HasAltitude bool
	Quality     string
}

// LatLng is a WGS84 coordinate in decimal degrees.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// GeolocatedObservation is a RawObservation with the position resolved from
// the session's fix stream. Position is nil when no fix fell inside the
// tolerance window; LastKnown then still points at the nearest fix seen in
// the session, if any, so the estimator's fallback has something to use.
type GeolocatedObservation struct {
	RawObservation
	Position  *LatLng
	LastKnown *LatLng
}
