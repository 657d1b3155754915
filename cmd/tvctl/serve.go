package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmaia/tvctl/internal/auth"
	"github.com/tmaia/tvctl/internal/discord"
	"github.com/tmaia/tvctl/internal/discovery"
	"github.com/tmaia/tvctl/internal/logger"
	"github.com/tmaia/tvctl/internal/pairing"
	"github.com/tmaia/tvctl/internal/presets"
	"github.com/tmaia/tvctl/internal/tv"
	"github.com/tmaia/tvctl/internal/web"
	"github.com/tmaia/tvctl/internal/wol"
)

var (
	cfgFile string
	cfg     Config
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			// Flags set on the command line win over the file. Reapplying
			// changed flags after the file load gives that ordering.
			flagCfg := cfg
			if err := loadConfigFile(cfgFile, &cfg); err != nil {
				return err
			}
			overlayChangedFlags(cmd, &cfg, flagCfg)
		}
		cfg.StateDir = cfgStateDir

		if err := validateConfig(cfg); err != nil {
			return err
		}

		logger.Setup(cfg.StateDir, logger.ParseLevel(cfg.LogLevel))
		return runServe(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVar(&cfgFile, "config", envStr("TVCTL_CONFIG", ""), "Path to a YAML config file")
	f.StringVar(&cfg.TVHost, "tv-host", envStr("TVCTL_TV_HOST", ""), "TV address on the local network")
	f.IntVar(&cfg.TVPort, "tv-port", envInt("TVCTL_TV_PORT", 3001), "TV websocket port")
	f.StringVar(&cfg.TVMAC, "tv-mac", envStr("TVCTL_TV_MAC", ""), "TV MAC address for Wake-on-LAN")
	f.StringVar(&cfg.Broadcast, "broadcast", envStr("TVCTL_BROADCAST", wol.DefaultBroadcast), "Broadcast address for Wake-on-LAN")
	f.BoolVar(&cfg.DisableTLS, "disable-tls", false, "Use plain ws:// on port 3000 firmware")
	f.StringVar(&cfg.Listen, "listen", envStr("TVCTL_LISTEN", ":8080"), "Dashboard listen address")
	f.StringVar(&cfg.LogLevel, "log-level", envStr("TVCTL_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	f.Float64Var(&cfg.RateLimit, "rate-limit", 20, "API requests per second per client")
	f.IntVar(&cfg.RateBurst, "rate-burst", 40, "API request burst per client")
	f.StringVar(&cfg.GoogleClientID, "google-client-id", envStr("GOOGLE_CLIENT_ID", ""), "Google OAuth client id (empty disables sign-in)")
	f.StringVar(&cfg.GoogleClientSecret, "google-client-secret", envStr("GOOGLE_CLIENT_SECRET", ""), "Google OAuth client secret")
	f.StringVar(&cfg.GoogleRedirectURL, "google-redirect-url", envStr("GOOGLE_REDIRECT_URL", ""), "OAuth callback URL")
	f.StringVar(&cfg.DiscordToken, "discord-token", envStr("DISCORD_BOT_TOKEN", ""), "Discord bot token (empty disables the bot)")
	f.StringVar(&cfg.GuildID, "guild-id", envStr("DISCORD_GUILD_ID", ""), "Discord guild ID for command registration")
	f.BoolVar(&cfg.MDNS, "mdns", true, "Advertise the dashboard over mDNS")

	var origins, emails string
	f.StringVar(&origins, "allowed-origins", envStr("TVCTL_ALLOWED_ORIGINS", ""), "Comma separated CORS origins")
	f.StringVar(&emails, "allowed-emails", envStr("ALLOWED_EMAILS", ""), "Comma separated Google accounts allowed to sign in")
	serveCmd.PreRun = func(_ *cobra.Command, _ []string) {
		if origins != "" {
			cfg.AllowedOrigins = splitList(origins)
		}
		if emails != "" {
			cfg.AllowedEmails = splitList(emails)
		}
	}
}

// overlayChangedFlags re-applies flags the user set explicitly on top of a
// config file load.
func overlayChangedFlags(cmd *cobra.Command, dst *Config, flagCfg Config) {
	set := map[string]func(){
		"tv-host":              func() { dst.TVHost = flagCfg.TVHost },
		"tv-port":              func() { dst.TVPort = flagCfg.TVPort },
		"tv-mac":               func() { dst.TVMAC = flagCfg.TVMAC },
		"broadcast":            func() { dst.Broadcast = flagCfg.Broadcast },
		"disable-tls":          func() { dst.DisableTLS = flagCfg.DisableTLS },
		"listen":               func() { dst.Listen = flagCfg.Listen },
		"log-level":            func() { dst.LogLevel = flagCfg.LogLevel },
		"rate-limit":           func() { dst.RateLimit = flagCfg.RateLimit },
		"rate-burst":           func() { dst.RateBurst = flagCfg.RateBurst },
		"google-client-id":     func() { dst.GoogleClientID = flagCfg.GoogleClientID },
		"google-client-secret": func() { dst.GoogleClientSecret = flagCfg.GoogleClientSecret },
		"google-redirect-url":  func() { dst.GoogleRedirectURL = flagCfg.GoogleRedirectURL },
		"discord-token":        func() { dst.DiscordToken = flagCfg.DiscordToken },
		"guild-id":             func() { dst.GuildID = flagCfg.GuildID },
		"mdns":                 func() { dst.MDNS = flagCfg.MDNS },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

// tvWaker adapts the configured MAC to the Waker the Discord bot expects.
type tvWaker struct {
	mac       string
	broadcast string
}

func (w tvWaker) Wake() error {
	return wol.Wake(w.mac, w.broadcast, wol.DefaultPort)
}

func runServe(cfg Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	creds, err := pairing.NewStore(filepath.Join(cfg.StateDir, "pairing"))
	if err != nil {
		return fmt.Errorf("pairing store: %w", err)
	}

	presetStore, err := presets.NewStore(filepath.Join(cfg.StateDir, "presets.json"))
	if err != nil {
		return fmt.Errorf("preset store: %w", err)
	}

	client := tv.New(tv.Options{
		Host:       cfg.TVHost,
		Port:       cfg.TVPort,
		DisableTLS: cfg.DisableTLS,
		Creds:      creds,
	})
	defer client.Disconnect()

	authSvc := auth.New(auth.Config{
		ClientID:      cfg.GoogleClientID,
		ClientSecret:  cfg.GoogleClientSecret,
		RedirectURL:   cfg.GoogleRedirectURL,
		AllowedEmails: cfg.AllowedEmails,
	})
	if authSvc == nil {
		slog.Info("google sign-in disabled, dashboard is open")
	}

	srv := web.NewServer(web.Config{
		Addr:           cfg.Listen,
		TVMAC:          cfg.TVMAC,
		WakeBroadcast:  cfg.Broadcast,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}, client, presetStore, authSvc)

	var bot *discord.Bot
	if cfg.DiscordToken != "" {
		bot, err = discord.NewBot(discord.BotConfig{
			Token:   cfg.DiscordToken,
			GuildID: cfg.GuildID,
		})
		if err != nil {
			return fmt.Errorf("discord init: %w", err)
		}
		router := discord.NewCommandRouter(client)
		if cfg.TVMAC != "" {
			router.WithWaker(tvWaker{mac: cfg.TVMAC, broadcast: cfg.Broadcast})
		}
		router.WithPresets(presetStore)
		bot.SetRouter(router)
		bot.RegisterCommands(router.Commands())

		if err := bot.Start(ctx); err != nil {
			slog.Warn("discord failed to connect", "error", err)
			bot = nil
		}
	}

	var advertiser *discovery.Advertiser
	if cfg.MDNS {
		_, portStr, _ := net.SplitHostPort(cfg.Listen)
		port, _ := strconv.Atoi(portStr)
		advertiser, err = discovery.NewAdvertiser(discovery.Config{
			InstanceName: "TV Control Dashboard",
			Port:         port,
			Meta: discovery.Metadata{
				Version:     version,
				TVHost:      cfg.TVHost,
				DisplayName: "TV Control Dashboard",
			},
		})
		if err != nil {
			slog.Warn("mdns init failed", "error", err)
			advertiser = nil
		} else if err := advertiser.Start(); err != nil {
			slog.Warn("mdns advertising failed", "error", err)
			advertiser = nil
		}
	}

	slog.Info("tvctl starting",
		"version", version,
		"tv", cfg.TVHost,
		"listen", cfg.Listen,
		"auth", authSvc != nil,
		"discord", bot != nil,
		"state", cfg.StateDir,
	)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if bot != nil {
			_ = bot.Stop()
		}
		if advertiser != nil {
			_ = advertiser.Stop()
		}
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv.Start()
}
