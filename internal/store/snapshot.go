package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// ErrMalformedSnapshot is returned when a stored snapshot cannot be parsed.
var ErrMalformedSnapshot = errors.New("store: malformed snapshot")

// Snapshotter loads and saves the whole registry as one unit.
type Snapshotter interface {
	Load(ctx context.Context) ([]UserRecord, error)
	Save(ctx context.Context, users []UserRecord) error
}

type fileDownloads struct {
	Videos uint64 `json:"videos"`
	Audios uint64 `json:"audios"`
}

type fileUser struct {
	Alias     string        `json:"alias"`
	Downloads fileDownloads `json:"downloads"`
}

type fileDB struct {
	Users map[string]fileUser `json:"users"`
}

// FileSnapshot stores the registry as a JSON document on disk.
type FileSnapshot struct {
	Path string
}

// NewFileSnapshot returns a snapshotter writing to path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{Path: path}
}

// Load reads the snapshot. A missing file yields an empty registry.
func (f *FileSnapshot) Load(_ context.Context) ([]UserRecord, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.Path, err)
	}

	var db fileDB
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, f.Path, err)
	}

	users := make([]UserRecord, 0, len(db.Users))
	for key, u := range db.Users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: user key %q", ErrMalformedSnapshot, f.Path, key)
		}
		users = append(users, UserRecord{
			ID:     id,
			Alias:  u.Alias,
			Counts: Counts{Videos: u.Downloads.Videos, Audios: u.Downloads.Audios},
		})
	}
	return users, nil
}

// Save writes the snapshot through a temporary file and renames it into place.
func (f *FileSnapshot) Save(_ context.Context, users []UserRecord) error {
	db := fileDB{Users: make(map[string]fileUser, len(users))}
	for _, u := range users {
		db.Users[strconv.FormatInt(u.ID, 10)] = fileUser{
			Alias:     u.Alias,
			Downloads: fileDownloads{Videos: u.Counts.Videos, Audios: u.Counts.Audios},
		}
	}
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("store: replace snapshot: %w", err)
	}
	return nil
}
