// Package oui resolves access-point vendors from the embedded OUI registry
// extract. Unknown prefixes simply resolve to nothing.
package oui

import (
	_ "embed"
	"encoding/csv"
	"strings"
	"sync"

	"github.com/wardrive/apmapper/internal/models"
)

//go:embed vendors.csv
var vendorsCSV string

var (
	once    sync.Once
	vendors map[string]string
)

func table() map[string]string {
	once.Do(func() {
		vendors = make(map[string]string)
		reader := csv.NewReader(strings.NewReader(vendorsCSV))
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return
		}
		for i, rec := range records {
			if i == 0 || len(rec) < 2 {
				continue
			}
			vendors[strings.ToUpper(strings.TrimSpace(rec[0]))] = strings.TrimSpace(rec[1])
		}
	})
	return vendors
}

// Vendor looks up the vendor name for a BSSID's OUI prefix.
func Vendor(bssid models.BSSID) (string, bool) {
	name, ok := table()[bssid.OUI()]
	return name, ok
}

// Bind fills the vendor field of every record whose prefix is known and
// returns how many records matched.
func Bind(records []*models.AccessPoint) int {
	bound := 0
	for _, rec := range records {
		if name, ok := Vendor(rec.BSSID); ok {
			rec.Vendor = name
			bound++
		}
	}
	return bound
}
