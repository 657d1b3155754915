package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgStateDir string

var rootCmd = &cobra.Command{
	Use:   "tvctl",
	Short: "Control dashboard for LG webOS TVs",
	Long:  `tvctl pairs with an LG webOS TV over its websocket control protocol and serves a web dashboard for it.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgStateDir, "state-dir", defaultStateDir(), "Directory for persistent state")
}

// defaultStateDir returns XDG_STATE_HOME/tvctl or ~/.local/state/tvctl.
func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tvctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tvctl", "state")
	}
	return filepath.Join(home, ".local", "state", "tvctl")
}

// --- env helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
