package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the highscore list in a flat JSON file, rewritten whole on every save
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadHighscores reads the list; a missing file is an empty list
func (f *FileStore) LoadHighscores() ([]Highscore, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Highscore{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []Highscore
	if len(raw) == 0 {
		return []Highscore{}, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if list == nil {
		list = []Highscore{}
	}
	return list, nil
}

// SaveHighscores writes to a temp file and renames it over the old one
func (f *FileStore) SaveHighscores(list []Highscore) error {
	if list == nil {
		list = []Highscore{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".highscores-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
