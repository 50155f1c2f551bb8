package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// BSSID is the 48-bit hardware identifier of an access point's radio.
// It is comparable and used as the aggregation key.
type BSSID [6]byte

// ParseBSSID accepts "aa:bb:cc:dd:ee:ff", "aa-bb-cc-dd-ee-ff" or the bare
// 12-digit hex form used by hashcat hash lines.
func ParseBSSID(s string) (BSSID, error) {
	var b BSSID
	cleaned := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(cleaned) != 12 {
		return b, fmt.Errorf("invalid BSSID %q", s)
	}
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return b, fmt.Errorf("invalid BSSID %q: %w", s, err)
	}
	copy(b[:], raw)
	return b, nil
}

// BSSIDFromBytes copies the first six bytes of raw into a BSSID.
func BSSIDFromBytes(raw []byte) (BSSID, error) {
	var b BSSID
	if len(raw) < 6 {
		return b, fmt.Errorf("short BSSID: %d bytes", len(raw))
	}
	copy(b[:], raw[:6])
	return b, nil
}

// String renders the usual colon-separated lower-case form.
func (b BSSID) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}

// OUI returns the vendor prefix (first three octets) in upper-case
// colon-separated form, as used by the vendor registry.
func (b BSSID) OUI() string {
	return fmt.Sprintf("%02X:%02X:%02X", b[0], b[1], b[2])
}
