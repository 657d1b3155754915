// Package presets manages saved TV scenes: named bundles of actions such as
// "launch Netflix, set volume 15". The list is a flat JSON file.
package presets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Action is one step of a preset.
type Action struct {
	Type        string `json:"type"` // "app", "volume" or "power"
	AppID       string `json:"app_id,omitempty"`
	Level       int    `json:"level,omitempty"`
	PowerAction string `json:"action,omitempty"` // "off" for power actions
}

// Preset is a saved scene.
type Preset struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Icon    string   `json:"icon,omitempty"`
	Actions []Action `json:"actions"`
}

// Controller is the subset of TV operations a preset can drive.
type Controller interface {
	LaunchApp(ctx context.Context, appID string, params map[string]any) error
	SetVolume(ctx context.Context, level int) error
	PowerOff(ctx context.Context) error
}

// Defaults are the scenes seeded into a fresh store.
var Defaults = []Preset{
	{
		ID: "movie", Name: "Movie", Icon: "bi-film",
		Actions: []Action{
			{Type: "app", AppID: "netflix"},
			{Type: "volume", Level: 15},
		},
	},
	{
		ID: "youtube", Name: "YouTube", Icon: "bi-youtube",
		Actions: []Action{
			{Type: "app", AppID: "youtube.leanback.v4"},
			{Type: "volume", Level: 12},
		},
	},
	{
		ID: "games", Name: "Games", Icon: "bi-controller",
		Actions: []Action{
			{Type: "app", AppID: "com.webos.app.hdmi2"},
			{Type: "volume", Level: 25},
		},
	},
	{
		ID: "music", Name: "Music", Icon: "bi-music-note-beamed",
		Actions: []Action{
			{Type: "app", AppID: "spotify-beehive"},
			{Type: "volume", Level: 20},
		},
	},
	{
		ID: "sleep", Name: "Sleep", Icon: "bi-moon-stars",
		Actions: []Action{
			{Type: "power", PowerAction: "off"},
		},
	},
}

// Store persists the preset list. All methods are concurrency-safe.
type Store struct {
	mu      sync.Mutex
	path    string
	presets []Preset
}

// NewStore loads presets from path, seeding the defaults when the file does
// not exist. An unreadable file is an error; a missing one is not.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read presets: %w", err)
		}
		s.presets = append([]Preset(nil), Defaults...)
		return s, nil
	}

	if err := json.Unmarshal(data, &s.presets); err != nil {
		return nil, fmt.Errorf("unmarshal presets: %w", err)
	}
	return s, nil
}

// List returns a copy of all presets.
func (s *Store) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Preset(nil), s.presets...)
}

// Get returns a preset by id.
func (s *Store) Get(id string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Add inserts a preset, replacing any existing one with the same id, and
// persists the list.
func (s *Store) Add(p Preset) error {
	if p.ID == "" {
		return fmt.Errorf("preset id is required")
	}
	if len(p.Actions) == 0 {
		return fmt.Errorf("preset %s has no actions", p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.presets[:0]
	for _, existing := range s.presets {
		if existing.ID != p.ID {
			kept = append(kept, existing)
		}
	}
	s.presets = append(kept, p)
	return s.save()
}

// Remove deletes a preset by id and persists the list.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.presets[:0]
	removed := false
	for _, p := range s.presets {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.presets = kept
	if !removed {
		return fmt.Errorf("unknown preset %q", id)
	}
	return s.save()
}

// Apply runs each action of a preset against the controller, stopping at the
// first failure.
func Apply(ctx context.Context, p Preset, ctrl Controller) error {
	for _, a := range p.Actions {
		var err error
		switch a.Type {
		case "app":
			err = ctrl.LaunchApp(ctx, a.AppID, nil)
		case "volume":
			err = ctrl.SetVolume(ctx, a.Level)
		case "power":
			err = ctrl.PowerOff(ctx)
		default:
			err = fmt.Errorf("unknown action type %q", a.Type)
		}
		if err != nil {
			return fmt.Errorf("preset %s: action %s: %w", p.ID, a.Type, err)
		}
	}
	return nil
}

// save writes the list as JSON using atomic rename. Caller holds the lock.
func (s *Store) save() error {
	tmp := s.path + ".tmp"

	data, err := json.MarshalIndent(s.presets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename presets: %w", err)
	}
	return nil
}
