package capture

import (
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/wardrive/apmapper/internal/models"
)

// Capability bit 4 signals that the network uses encryption of some kind.
const capabilityPrivacy = 0x0010

// decodeObservation decodes one radiotap-framed 802.11 packet. Only beacon
// and probe-response management frames are retained; they reliably carry the
// transmitting access point's BSSID in address 3. Anything else, including
// frames gopacket cannot decode, reports ok=false.
func decodeObservation(data []byte, when time.Time) (*models.RawObservation, bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeRadioTap, gopacket.NoCopy)

	rt, _ := pkt.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap)
	if rt == nil {
		return nil, false
	}
	dot11, _ := pkt.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	if dot11 == nil {
		return nil, false
	}

	var (
		kind models.FrameKind
		caps uint16
	)
	switch dot11.Type {
	case layers.Dot11TypeMgmtBeacon:
		kind = models.FrameBeacon
		if b, _ := pkt.Layer(layers.LayerTypeDot11MgmtBeacon).(*layers.Dot11MgmtBeacon); b != nil {
			caps = b.Flags
		}
	case layers.Dot11TypeMgmtProbeResp:
		kind = models.FrameProbeResponse
		if p, _ := pkt.Layer(layers.LayerTypeDot11MgmtProbeResp).(*layers.Dot11MgmtProbeResp); p != nil {
			caps = p.Flags
		}
	default:
		return nil, false
	}

	bssid, err := models.BSSIDFromBytes(dot11.Address3)
	if err != nil {
		return nil, false
	}

	obs := &models.RawObservation{
		BSSID:     bssid,
		Timestamp: when,
		Kind:      kind,
	}
	if rt.Present.DBMAntennaSignal() {
		obs.SignalDBM = rt.DBMAntennaSignal
	}
	if rt.Present.Channel() {
		obs.Channel = channelFromFrequency(int(rt.ChannelFrequency))
	}

	var ies []*layers.Dot11InformationElement
	for _, l := range pkt.Layers() {
		if ie, ok := l.(*layers.Dot11InformationElement); ok {
			ies = append(ies, ie)
		}
	}
	obs.SSID = ssidFromElements(ies)
	obs.Security = classifySecurity(caps, ies)
	return obs, true
}

func ssidFromElements(ies []*layers.Dot11InformationElement) string {
	for _, ie := range ies {
		if ie.ID != layers.Dot11InformationElementIDSSID {
			continue
		}
		if len(ie.Info) == 0 || !utf8.Valid(ie.Info) {
			return ""
		}
		return string(ie.Info)
	}
	return ""
}

// classifySecurity derives the advertised security mode from the capability
// field and the frame's information elements: no privacy bit means an open
// network, an RSN element means WPA2 and/or WPA3 depending on the AKM
// suites, the Microsoft vendor element means WPA1, and a privacy bit with
// neither element means WEP.
func classifySecurity(caps uint16, ies []*layers.Dot11InformationElement) models.Security {
	if caps&capabilityPrivacy == 0 {
		return models.SecurityOpen
	}

	var hasRSN, hasWPA, hasSAE, hasPSK bool
	for _, ie := range ies {
		switch ie.ID {
		case layers.Dot11InformationElementIDRSNInfo:
			hasRSN = true
			sae, psk := rsnAKMSuites(ie.Info)
			hasSAE = hasSAE || sae
			hasPSK = hasPSK || psk
		case layers.Dot11InformationElementIDVendor:
			if len(ie.OUI) >= 4 && ie.OUI[0] == 0x00 && ie.OUI[1] == 0x50 && ie.OUI[2] == 0xf2 && ie.OUI[3] == 0x01 {
				hasWPA = true
			}
		}
	}

	switch {
	case hasRSN && hasSAE && hasPSK:
		return models.SecurityWPA2WPA3
	case hasRSN && hasSAE:
		return models.SecurityWPA3
	case hasRSN:
		return models.SecurityWPA2
	case hasWPA:
		return models.SecurityWPA
	default:
		return models.SecurityWEP
	}
}

// rsnAKMSuites walks the RSN element's AKM suite list and reports whether
// SAE (WPA3) or PSK (WPA2) authentication is offered. Layout: version (2),
// group cipher (4), pairwise count (2), pairwise suites (4 each), AKM count
// (2), AKM suites (4 each).
func rsnAKMSuites(info []byte) (sae, psk bool) {
	if len(info) < 8 {
		return false, false
	}
	pairwiseCount := int(binary.LittleEndian.Uint16(info[6:8]))
	akmOffset := 8 + pairwiseCount*4
	if len(info) < akmOffset+2 {
		return false, false
	}
	akmCount := int(binary.LittleEndian.Uint16(info[akmOffset : akmOffset+2]))
	for i := 0; i < akmCount; i++ {
		suite := akmOffset + 2 + i*4
		if len(info) < suite+4 {
			break
		}
		switch info[suite+3] {
		case 2, 6:
			psk = true
		case 8:
			sae = true
		}
	}
	return sae, psk
}

func channelFromFrequency(freq int) uint8 {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq <= 2472:
		return uint8((freq - 2407) / 5)
	case freq >= 5160 && freq <= 5885:
		return uint8((freq - 5000) / 5)
	default:
		return 0
	}
}
