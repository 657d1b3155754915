// Package discord exposes a handful of TV controls as slash commands, so the
// TV can be driven from a phone without opening the dashboard.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// BotConfig holds the configuration for the Discord bot.
type BotConfig struct {
	Token   string
	GuildID string
}

// Bot wraps a discordgo session with command routing.
type Bot struct {
	config   BotConfig
	session  *discordgo.Session
	router   *CommandRouter
	commands []SlashCommand
}

// NewBot validates config and creates a new Bot.
func NewBot(config BotConfig) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	return &Bot{config: config}, nil
}

// SetRouter sets the command router for handling slash commands.
func (b *Bot) SetRouter(router *CommandRouter) {
	b.router = router
}

// RegisterCommands stores commands for registration on Start.
func (b *Bot) RegisterCommands(cmds []SlashCommand) {
	b.commands = cmds
}

// Start connects to Discord, registers slash commands, and installs the
// interaction handler that routes commands to the CommandRouter.
func (b *Bot) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + b.config.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	b.session = session

	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}

	slog.Info("discord bot connected", "username", b.session.State.User.Username)

	for _, cmd := range toApplicationCommands(b.commands) {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			slog.Warn("slash command registration failed", "command", cmd.Name, "error", err)
		}
	}

	return nil
}

// Stop closes the Discord session.
func (b *Bot) Stop() error {
	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

// handleInteraction routes InteractionCreate events to CommandRouter handlers.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if b.router == nil {
		return
	}

	data := i.ApplicationCommandData()
	ctx := context.Background()

	// Defer immediately to stay inside Discord's 3s interaction window.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Warn("deferring interaction failed", "error", err)
	}

	strOpt := func(name string) string {
		for _, opt := range data.Options {
			if opt.Name == name {
				return opt.StringValue()
			}
		}
		return ""
	}
	intOpt := func(name string, def int) int {
		for _, opt := range data.Options {
			if opt.Name == name {
				return int(opt.IntValue())
			}
		}
		return def
	}
	boolOpt := func(name string) bool {
		for _, opt := range data.Options {
			if opt.Name == name {
				return opt.BoolValue()
			}
		}
		return false
	}

	var resp CommandResponse

	switch data.Name {
	case "status":
		resp = b.router.HandleStatus(ctx)
	case "volume":
		resp = b.router.HandleVolume(ctx, intOpt("level", -1))
	case "mute":
		resp = b.router.HandleMute(ctx, boolOpt("on"))
	case "power":
		resp = b.router.HandlePower(ctx, strOpt("action"))
	case "app":
		resp = b.router.HandleApp(ctx, strOpt("name"))
	case "toast":
		resp = b.router.HandleToast(ctx, strOpt("message"))
	case "preset":
		resp = b.router.HandlePreset(ctx, strOpt("name"))
	default:
		resp = CommandResponse{Message: fmt.Sprintf("Unknown command: %s", data.Name)}
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: resp.Message,
	}); err != nil {
		slog.Warn("sending follow-up failed", "error", err)
	}
}

// SlashCommand defines a Discord slash command with options.
type SlashCommand struct {
	Name        string
	Description string
	Options     []*discordgo.ApplicationCommandOption
}

// toApplicationCommands converts SlashCommands to discordgo format.
func toApplicationCommands(cmds []SlashCommand) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, len(cmds))
	for i, cmd := range cmds {
		out[i] = &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		}
	}
	return out
}
