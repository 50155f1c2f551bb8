// Package export renders finished access-point records as KML and CSV.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/wardrive/apmapper/internal/models"
)

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPlacemark struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Point       kmlPoint `xml:"Point"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	XMLNS    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

// WriteKML renders one placemark per record that has an estimated position.
// The placemark name is the SSID, falling back to the BSSID for hidden
// networks; the description carries the remaining fields.
func WriteKML(w io.Writer, records []*models.AccessPoint) error {
	doc := kmlRoot{
		XMLNS:    "http://www.opengis.net/kml/2.2",
		Document: kmlDocument{Name: "WiFi access points"},
	}

	for _, rec := range records {
		if rec.Estimated == nil {
			continue
		}
		name := rec.SSID
		if name == "" {
			name = rec.BSSID.String()
		}
		doc.Document.Placemarks = append(doc.Document.Placemarks, kmlPlacemark{
			Name:        name,
			Description: placemarkDescription(rec),
			Point: kmlPoint{
				Coordinates: fmt.Sprintf("%.6f,%.6f,0", rec.Estimated.Longitude, rec.Estimated.Latitude),
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func placemarkDescription(rec *models.AccessPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BSSID: %s\n", rec.BSSID)
	if rec.Channel != 0 {
		fmt.Fprintf(&b, "Channel: %d\n", rec.Channel)
	}
	fmt.Fprintf(&b, "Security: %s\n", rec.Security)
	if rec.Vendor != "" {
		fmt.Fprintf(&b, "Vendor: %s\n", rec.Vendor)
	}
	fmt.Fprintf(&b, "Observations: %d\n", len(rec.Observations))
	fmt.Fprintf(&b, "Method: %s\n", rec.Estimated.Method)
	if rec.Password != "" {
		fmt.Fprintf(&b, "Password: %s\n", rec.Password)
	}
	return b.String()
}
