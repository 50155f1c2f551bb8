package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBSSID(t *testing.T) {
	want := BSSID{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	for _, input := range []string{
		"aa:bb:cc:dd:ee:ff",
		"AA-BB-CC-DD-EE-FF",
		"aabbccddeeff",
		" aa:bb:cc:dd:ee:ff ",
	} {
		got, err := ParseBSSID(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	for _, input := range []string{"", "aa:bb:cc", "zz:bb:cc:dd:ee:ff", "aabbccddeeff00"} {
		_, err := ParseBSSID(input)
		assert.Error(t, err, input)
	}
}

func TestBSSIDFromBytes(t *testing.T) {
	got, err := BSSIDFromBytes([]byte{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, BSSID{1, 2, 3, 4, 5, 6}, got)

	_, err = BSSIDFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestBSSIDString(t *testing.T) {
	b := BSSID{0xaa, 0xbb, 0xcc, 0x01, 0x02, 0x03}
	assert.Equal(t, "aa:bb:cc:01:02:03", b.String())
	assert.Equal(t, "AA:BB:CC", b.OUI())
}
