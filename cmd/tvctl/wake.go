package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmaia/tvctl/internal/wol"
)

var (
	wakeBroadcast string
	wakePort      int
)

var wakeCmd = &cobra.Command{
	Use:   "wake <mac>",
	Short: "Send a Wake-on-LAN magic packet to the TV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mac := args[0]
		if err := wol.Wake(mac, wakeBroadcast, wakePort); err != nil {
			return err
		}
		fmt.Printf("magic packet sent to %s via %s:%d\n", mac, wakeBroadcast, wakePort)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wakeCmd)

	wakeCmd.Flags().StringVar(&wakeBroadcast, "broadcast", wol.DefaultBroadcast, "Broadcast address")
	wakeCmd.Flags().IntVar(&wakePort, "port", wol.DefaultPort, "UDP port")
}
