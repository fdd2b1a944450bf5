package datastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive is the document written for one archive disposition.
type Archive struct {
	PolicyID   string    `json:"policy_id"`
	ArchivedAt time.Time `json:"archived_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

// writeArchive exports records as a JSON file under location and returns
// the file path. Files are named by policy and time so repeated runs never
// overwrite each other.
func writeArchive(location, policyID string, now time.Time, records []*Record) (string, error) {
	if err := os.MkdirAll(location, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", policyID, now.UTC().Format("20060102-150405.000000000"))
	path := filepath.Join(location, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(Archive{
		PolicyID:   policyID,
		ArchivedAt: now.UTC(),
		Count:      len(records),
		Records:    records,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	return path, nil
}

// ReadArchive loads an archive file written by a store.
func ReadArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode archive %s: %w", path, err)
	}
	return &a, nil
}
