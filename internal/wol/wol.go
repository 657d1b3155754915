// Package wol sends Wake-on-LAN magic packets. The TV cannot be reached over
// SSAP while powered down, so power-on goes out of band as a one-shot UDP
// broadcast.
package wol

import (
	"fmt"
	"net"
)

const (
	// DefaultBroadcast is the limited broadcast address.
	DefaultBroadcast = "255.255.255.255"

	// DefaultPort is the conventional WoL discard port.
	DefaultPort = 9

	packetSize = 102 // 6 sync bytes + 16 repetitions of the 6-byte MAC
)

// MagicPacket builds the 102-byte wake pattern for a MAC address given in
// colon or dash notation: six 0xFF bytes followed by the hardware address
// repeated sixteen times.
func MagicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("invalid MAC %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("invalid MAC %q: want 6 bytes, got %d", mac, len(hw))
	}

	packet := make([]byte, 0, packetSize)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}
	return packet, nil
}

// Wake broadcasts a magic packet for mac. Empty broadcast or zero port fall
// back to the defaults.
func Wake(mac, broadcast string, port int) error {
	packet, err := MagicPacket(mac)
	if err != nil {
		return err
	}

	if broadcast == "" {
		broadcast = DefaultBroadcast
	}
	if port == 0 {
		port = DefaultPort
	}

	addr := net.JoinHostPort(broadcast, fmt.Sprintf("%d", port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}
	return nil
}
