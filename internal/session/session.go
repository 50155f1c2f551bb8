// Package session discovers capture/track-log pairs in a working directory
// and runs the per-session parse and synchronization pipeline in parallel.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Session is one matched capture/track-log pair.
type Session struct {
	Name    string
	Capture string
	FixLog  string
}

// Discovery is what a working-directory scan found.
type Discovery struct {
	Sessions  []Session
	HashFiles []string
	ShowFiles []string
}

// Discover scans a directory for session files. A capture pairs with the
// track log sharing its base name; when the directory holds exactly one
// track log it serves every capture, which matches how single-receiver rigs
// record. Captures without any track log are reported and skipped. Hash
// (.22000) and cracked (.potfile) files are collected for password binding.
func Discover(dir string, logger zerolog.Logger) (Discovery, error) {
	var d Discovery

	entries, err := os.ReadDir(dir)
	if err != nil {
		return d, fmt.Errorf("scan working directory: %w", err)
	}

	fixLogs := make(map[string]string)
	var captures []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pcapng":
			captures = append(captures, path)
		case ".nmea":
			fixLogs[stem] = path
		case ".22000":
			d.HashFiles = append(d.HashFiles, path)
		case ".potfile":
			d.ShowFiles = append(d.ShowFiles, path)
		}
	}
	sort.Strings(captures)

	var soleLog string
	if len(fixLogs) == 1 {
		for _, path := range fixLogs {
			soleLog = path
		}
	}

	for _, capPath := range captures {
		stem := strings.TrimSuffix(filepath.Base(capPath), filepath.Ext(capPath))
		fixLog, ok := fixLogs[stem]
		if !ok {
			fixLog = soleLog
		}
		if fixLog == "" {
			logger.Warn().Str("capture", capPath).Msg("no track log for capture, skipping session")
			continue
		}
		d.Sessions = append(d.Sessions, Session{Name: stem, Capture: capPath, FixLog: fixLog})
	}

	return d, nil
}
