// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/a2ui/pkg/config/provider"
)

// DefaultPath returns <user config dir>/a2ui/settings.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "a2ui", "settings.yaml"), nil
}

// Store owns the settings file and the current in-memory value.
type Store struct {
	file *provider.FileProvider

	mu      sync.RWMutex
	current Settings
	subs    map[int]func(Settings)
	nextSub int
}

// NewStore creates a store for path, or DefaultPath when path is empty.
// The current value starts at Default until Load is called.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	file, err := provider.NewFileProvider(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		file:    file,
		current: Default(),
		subs:    make(map[int]func(Settings)),
	}, nil
}

// Path returns the absolute file path.
func (s *Store) Path() string {
	return s.file.Path()
}

// Load reads the file into the store. A missing file yields defaults.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	loaded, err := s.read(ctx)
	if err != nil {
		return Settings{}, err
	}
	s.replace(loaded)
	return loaded, nil
}

func (s *Store) read(ctx context.Context) (Settings, error) {
	data, err := s.file.Load(ctx)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, err
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", s.Path(), err)
	}
	loaded.SetDefaults()
	if err := loaded.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", s.Path(), err)
	}
	return loaded, nil
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates and writes v, replacing the file atomically.
func (s *Store) Save(v Settings) error {
	v.SetDefaults()
	if err := v.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(&v)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	path := s.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	s.replace(v)
	return nil
}

// Update applies fn to a copy of the current settings and saves the result.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	next := s.Get()
	fn(&next)
	if err := s.Save(next); err != nil {
		return Settings{}, err
	}
	return next, nil
}

// Subscribe registers fn to be called with every changed value. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Settings)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// replace swaps the current value and notifies subscribers if it changed.
func (s *Store) replace(v Settings) {
	s.mu.Lock()
	changed := s.current != v
	s.current = v
	subs := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(v)
	}
}

// Watch re-reads the file whenever it changes on disk until ctx is done.
// An invalid file is logged and the previous value kept.
func (s *Store) Watch(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	changes, err := s.file.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch settings: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			loaded, err := s.read(ctx)
			if err != nil {
				slog.Warn("Ignoring settings change", "path", s.Path(), "error", err)
				continue
			}
			slog.Debug("Settings reloaded", "path", s.Path())
			s.replace(loaded)
		}
	}
}

// Close stops any watch.
func (s *Store) Close() error {
	return s.file.Close()
}
