// Package potfile binds recovered WPA passwords to access-point records.
// The input files come from an external password-recovery tool: "--show"
// output lines (colon-separated, cracked hash plus plaintext) and raw 22000
// hash lines (star-separated), which also reveal the handshake's security
// mode. This package only reads files; running the cracker is the
// operator's job.
package potfile

import (
	"bufio"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wardrive/apmapper/internal/models"
)

// Entry is one cracked network.
type Entry struct {
	BSSID    models.BSSID
	SSID     string
	Password string
}

// Store holds cracked entries and per-BSSID security hints and answers
// lookups by BSSID/SSID.
type Store struct {
	entries  []Entry
	security map[models.BSSID]models.Security
	seen     map[string]struct{}
	logger   zerolog.Logger
}

// NewStore returns an empty store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		security: make(map[models.BSSID]models.Security),
		seen:     make(map[string]struct{}),
		logger:   logger,
	}
}

// LoadShowFile reads "--show" output: colon-separated lines whose fields
// include the AP MAC, the ESSID and the recovered plaintext. Returns how
// many new entries were added; malformed lines are dropped.
func (s *Store) LoadShowFile(r io.Reader) int {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, dup := s.seen[line]; dup {
			continue
		}
		s.seen[line] = struct{}{}

		parts := strings.Split(line, ":")
		if len(parts) < 5 {
			continue
		}
		bssid, err := models.ParseBSSID(parts[1])
		if err != nil {
			s.logger.Trace().Str("mac", parts[1]).Msg("dropped cracked line with bad MAC")
			continue
		}
		s.entries = append(s.entries, Entry{
			BSSID:    bssid,
			SSID:     parts[3],
			Password: parts[4],
		})
		added++
	}
	return added
}

// LoadHashFile reads raw 22000 hash lines for their security hints:
// WPA*TYPE*PMKID/MIC*MAC_AP*MAC_CLIENT*ESSID*ANONCE*EAPOL*MESSAGEPAIR.
// Type 02 lines carry an EAPOL blob whose AKM suite identifies the mode;
// type 01 (PMKID) lines are assumed WPA2. Returns how many BSSIDs gained a
// security hint.
func (s *Store) LoadHashFile(r io.Reader) int {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), "*")
		if len(parts) < 5 || parts[0] != "WPA" {
			continue
		}
		bssid, err := models.ParseBSSID(parts[3])
		if err != nil {
			continue
		}
		security := models.SecurityWPA2
		if parts[1] == "02" && len(parts) >= 9 {
			security = securityFromEAPOL(parts[7])
		}
		if _, ok := s.security[bssid]; !ok {
			s.security[bssid] = security
			added++
		}
	}
	return added
}

// Lookup returns the plaintext for a BSSID. When the caller knows the SSID,
// a non-empty value must match the entry's ESSID; an empty value matches any
// entry for the BSSID.
func (s *Store) Lookup(bssid models.BSSID, ssid string) (string, bool) {
	for _, e := range s.entries {
		if e.BSSID != bssid {
			continue
		}
		if ssid == "" || ssid == e.SSID {
			return e.Password, true
		}
	}
	return "", false
}

// Bind attaches passwords and security hints to matching records. A record
// without an SSID adopts the cracked entry's ESSID. Returns the number of
// records that gained a password.
func (s *Store) Bind(records []*models.AccessPoint) int {
	bound := 0
	for _, rec := range records {
		if sec, ok := s.security[rec.BSSID]; ok && rec.Security == models.SecurityUnknown {
			rec.Security = sec
		}
		for _, e := range s.entries {
			if e.BSSID != rec.BSSID {
				continue
			}
			if rec.SSID != "" && rec.SSID != e.SSID {
				continue
			}
			if rec.SSID == "" {
				rec.SSID = e.SSID
			}
			if rec.Password == "" {
				rec.Password = e.Password
				bound++
			}
		}
	}
	return bound
}

// securityFromEAPOL inspects the hex-encoded EAPOL blob for AKM suite
// selectors. 000fac08/000fac0c mean SAE (WPA3), 000fac02/000fac06 WPA2-PSK,
// 000fac01 and the Microsoft OUI variant WPA1. WPA2 is the fallback.
func securityFromEAPOL(eapol string) models.Security {
	switch {
	case strings.Contains(eapol, "000fac08"), strings.Contains(eapol, "000fac0c"):
		return models.SecurityWPA3
	case strings.Contains(eapol, "000fac02"), strings.Contains(eapol, "000fac06"):
		return models.SecurityWPA2
	case strings.Contains(eapol, "000fac01"), strings.Contains(eapol, "0050f202"):
		return models.SecurityWPA
	default:
		return models.SecurityWPA2
	}
}
