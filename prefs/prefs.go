// Package prefs is a small observable key-value store for user preferences.
// Values persist to a YAML file, and changes written by other processes are
// picked up by Watch and delivered to subscribers.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// KeyThemeMode selects the dark or light palette.
const KeyThemeMode = "theme-mode"

// Theme modes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// ErrInvalidValue is returned by Set for a value the key does not accept.
var ErrInvalidValue = errors.New("invalid preference value")

var defaults = map[string]string{
	KeyThemeMode: ThemeDark,
}

// Change is one key whose effective value changed.
type Change struct {
	Key   string
	Value string
}

type subscriber struct {
	id int
	fn func(Change)
}

// Store holds preferences backed by a YAML file.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]string
	subs   []subscriber
	nextID int
}

// DefaultPath returns ~/.config/mission-control/prefs.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mission-control", "prefs.yaml")
	}
	return filepath.Join(home, ".config", "mission-control", "prefs.yaml")
}

// Open loads the preferences at path. A missing file is an empty store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}
	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs %s: %w", s.path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", s.path, err)
	}
	// An empty document such as "null" or "~" unmarshals to a nil map.
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *Store) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func effective(values map[string]string, key string) string {
	if v, ok := values[key]; ok {
		return v
	}
	return defaults[key]
}

func validate(key, value string) error {
	if key == KeyThemeMode && value != ThemeDark && value != ThemeLight {
		return fmt.Errorf("%s=%q: %w", key, value, ErrInvalidValue)
	}
	return nil
}

// Get returns the value of key, or its default when unset.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return effective(s.values, key)
}

// Set stores value under key, persists the file and notifies subscribers
// if the effective value changed.
func (s *Store) Set(key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}
	s.mu.Lock()
	old := effective(s.values, key)
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.writeLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		s.mu.Unlock()
		return err
	}
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	if old != value {
		notify(subs, []Change{{Key: key, Value: value}})
	}
	return nil
}

// Subscribe registers fn for changes and returns a function that removes
// it. fn runs on the goroutine that made the change.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func notify(subs []subscriber, changes []Change) {
	for _, c := range changes {
		for _, sub := range subs {
			sub.fn(c)
		}
	}
}

// Reload rereads the file and notifies subscribers of every key whose
// effective value differs from what the store held.
func (s *Store) Reload() error {
	values, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	var changes []Change
	keys := maps.Clone(defaults)
	maps.Copy(keys, s.values)
	maps.Copy(keys, values)
	for k := range keys {
		if v := effective(values, k); v != effective(s.values, k) {
			changes = append(changes, Change{Key: k, Value: v})
		}
	}
	s.values = values
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	notify(subs, changes)
	return nil
}

// Watch starts following the backing file for writes by other processes
// until ctx is done. It returns once the watch is in place.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch prefs: %w", err)
	}
	// The directory is watched so that rename-over writes are seen.
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch prefs dir %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("prefs reload failed", slog.String("path", s.path), slog.Any("err", err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("prefs watcher error", slog.Any("err", err))
			}
		}
	}()
	return nil
}

// ThemeMode returns the current theme mode.
func (s *Store) ThemeMode() string { return s.Get(KeyThemeMode) }

// ToggleTheme flips between dark and light and returns the new mode.
func (s *Store) ToggleTheme() (string, error) {
	next := ThemeLight
	if s.ThemeMode() == ThemeLight {
		next = ThemeDark
	}
	return next, s.Set(KeyThemeMode, next)
}
