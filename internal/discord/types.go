package discord

import (
	"context"

	"github.com/tmaia/tvctl/internal/presets"
	"github.com/tmaia/tvctl/internal/tv"
)

// Controller is the subset of TV operations slash commands drive.
type Controller interface {
	IsConnected() bool
	Host() string
	Connect(ctx context.Context) error
	GetVolume(ctx context.Context) (tv.VolumeStatus, error)
	SetVolume(ctx context.Context, level int) error
	SetMute(ctx context.Context, mute bool) error
	PowerOff(ctx context.Context) error
	LaunchApp(ctx context.Context, appID string, params map[string]any) error
	GetForegroundApp(ctx context.Context) (tv.ForegroundApp, error)
	Toast(ctx context.Context, message string) error
}

// Waker sends a Wake-on-LAN packet to the TV.
type Waker interface {
	Wake() error
}

// PresetStore provides read access to saved scenes.
type PresetStore interface {
	List() []presets.Preset
	Get(id string) (presets.Preset, bool)
}
