package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/tmaia/tvctl/internal/presets"
	"github.com/tmaia/tvctl/internal/tv"
)

// CommandResponse is the result returned by command handlers.
type CommandResponse struct {
	OK      bool
	Message string
}

// CommandRouter dispatches slash commands to the TV client.
type CommandRouter struct {
	ctrl    Controller
	waker   Waker       // optional, nil when no MAC is configured
	presets PresetStore // optional
}

// NewCommandRouter creates a router backed by the given controller.
func NewCommandRouter(ctrl Controller) *CommandRouter {
	return &CommandRouter{ctrl: ctrl}
}

// WithWaker enables the /power on command.
func (r *CommandRouter) WithWaker(w Waker) {
	r.waker = w
}

// WithPresets enables the /preset command.
func (r *CommandRouter) WithPresets(store PresetStore) {
	r.presets = store
}

// Commands returns the slash command definitions for Discord registration.
func (r *CommandRouter) Commands() []SlashCommand {
	cmds := []SlashCommand{
		{
			Name:        "status",
			Description: "Show the TV connection, volume and foreground app",
		},
		{
			Name:        "volume",
			Description: "Set the TV volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "level", Description: "Volume level 0-100", Required: true},
			},
		},
		{
			Name:        "mute",
			Description: "Mute or unmute the TV",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "on", Description: "Mute when true", Required: true},
			},
		},
		{
			Name:        "power",
			Description: "Turn the TV off, or wake it over the network",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "off or on", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: "off"},
						{Name: "On (Wake-on-LAN)", Value: "on"},
					},
				},
			},
		},
		{
			Name:        "app",
			Description: "Launch an app on the TV",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "App name or id (e.g. netflix)", Required: true},
			},
		},
		{
			Name:        "toast",
			Description: "Show a notification on the TV screen",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Text to display", Required: true},
			},
		},
	}

	if r.presets != nil {
		cmds = append(cmds, SlashCommand{
			Name:        "preset",
			Description: "Apply a saved scene",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Preset id (e.g. movie)", Required: true},
			},
		})
	}

	return cmds
}

// errorMessage turns client failures into something readable in a chat reply.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, tv.ErrNotConnected):
		return "📺 Not connected to the TV. Use the dashboard to connect first."
	case errors.Is(err, tv.ErrTimeout):
		return "⏱️ The TV did not answer in time"
	case errors.Is(err, tv.ErrConnectionLost):
		return "📺 Lost the connection to the TV"
	default:
		return fmt.Sprintf("❌ Error: %s", err.Error())
	}
}

// HandleStatus reports the connection state and a short snapshot.
func (r *CommandRouter) HandleStatus(ctx context.Context) CommandResponse {
	if !r.ctrl.IsConnected() {
		return CommandResponse{OK: true, Message: fmt.Sprintf("📺 Disconnected from %s", r.ctrl.Host())}
	}

	parts := []string{fmt.Sprintf("📺 Connected to %s", r.ctrl.Host())}
	if vs, err := r.ctrl.GetVolume(ctx); err == nil {
		if vs.Muted {
			parts = append(parts, "🔇 Muted")
		} else {
			parts = append(parts, fmt.Sprintf("🔊 Volume %d", vs.Volume))
		}
	}
	if fg, err := r.ctrl.GetForegroundApp(ctx); err == nil && fg.AppID != "" {
		parts = append(parts, fmt.Sprintf("▶️ %s", fg.AppID))
	}
	return CommandResponse{OK: true, Message: strings.Join(parts, "\n")}
}

// HandleVolume sets the volume level.
func (r *CommandRouter) HandleVolume(ctx context.Context, level int) CommandResponse {
	if level < 0 || level > 100 {
		return CommandResponse{OK: false, Message: "❌ Volume must be between 0 and 100"}
	}
	if err := r.ctrl.SetVolume(ctx, level); err != nil {
		return CommandResponse{OK: false, Message: errorMessage(err)}
	}
	return CommandResponse{OK: true, Message: fmt.Sprintf("🔊 Volume set to %d", level)}
}

// HandleMute toggles mute.
func (r *CommandRouter) HandleMute(ctx context.Context, mute bool) CommandResponse {
	if err := r.ctrl.SetMute(ctx, mute); err != nil {
		return CommandResponse{OK: false, Message: errorMessage(err)}
	}
	if mute {
		return CommandResponse{OK: true, Message: "🔇 Muted"}
	}
	return CommandResponse{OK: true, Message: "🔊 Unmuted"}
}

// HandlePower turns the TV off or wakes it.
func (r *CommandRouter) HandlePower(ctx context.Context, action string) CommandResponse {
	switch action {
	case "off":
		if err := r.ctrl.PowerOff(ctx); err != nil {
			return CommandResponse{OK: false, Message: errorMessage(err)}
		}
		return CommandResponse{OK: true, Message: "📺 Powering off"}
	case "on":
		if r.waker == nil {
			return CommandResponse{OK: false, Message: "❌ No TV MAC address configured for Wake-on-LAN"}
		}
		if err := r.waker.Wake(); err != nil {
			return CommandResponse{OK: false, Message: fmt.Sprintf("❌ Wake failed: %s", err.Error())}
		}
		return CommandResponse{OK: true, Message: "⚡ Magic packet sent"}
	default:
		return CommandResponse{OK: false, Message: fmt.Sprintf("❌ Unknown power action %q", action)}
	}
}

// HandleApp launches an app by name or id.
func (r *CommandRouter) HandleApp(ctx context.Context, name string) CommandResponse {
	if name == "" {
		return CommandResponse{OK: false, Message: "❌ App name required"}
	}
	if err := r.ctrl.LaunchApp(ctx, name, nil); err != nil {
		return CommandResponse{OK: false, Message: errorMessage(err)}
	}
	return CommandResponse{OK: true, Message: fmt.Sprintf("🚀 Launching %s", name)}
}

// HandleToast shows an on-screen notification.
func (r *CommandRouter) HandleToast(ctx context.Context, message string) CommandResponse {
	if message == "" {
		return CommandResponse{OK: false, Message: "❌ Message required"}
	}
	if err := r.ctrl.Toast(ctx, message); err != nil {
		return CommandResponse{OK: false, Message: errorMessage(err)}
	}
	return CommandResponse{OK: true, Message: "💬 Toast sent"}
}

// HandlePreset applies a saved scene.
func (r *CommandRouter) HandlePreset(ctx context.Context, id string) CommandResponse {
	if r.presets == nil {
		return CommandResponse{OK: false, Message: "❌ Presets are not enabled"}
	}

	p, ok := r.presets.Get(id)
	if !ok {
		names := make([]string, 0)
		for _, pr := range r.presets.List() {
			names = append(names, pr.ID)
		}
		return CommandResponse{OK: false, Message: fmt.Sprintf("❌ Unknown preset %q. Available: %s", id, strings.Join(names, ", "))}
	}

	if err := presets.Apply(ctx, p, r.ctrl); err != nil {
		return CommandResponse{OK: false, Message: errorMessage(err)}
	}
	return CommandResponse{OK: true, Message: fmt.Sprintf("✨ Applied %s", p.Name)}
}
