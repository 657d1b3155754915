package wol

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicPacket(t *testing.T) {
	t.Run("builds the 102 byte frame", func(t *testing.T) {
		pkt, err := MagicPacket("AC:5A:F0:C4:DD:F2")
		require.NoError(t, err)
		require.Len(t, pkt, 102)

		// Six bytes of 0xFF, then the MAC sixteen times.
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), pkt[:6])
		mac := []byte{0xAC, 0x5A, 0xF0, 0xC4, 0xDD, 0xF2}
		for i := 0; i < 16; i++ {
			assert.Equal(t, mac, pkt[6+i*6:6+(i+1)*6], "repetition %d", i)
		}
	})

	t.Run("accepts dash separated form", func(t *testing.T) {
		a, err := MagicPacket("ac:5a:f0:c4:dd:f2")
		require.NoError(t, err)
		b, err := MagicPacket("ac-5a-f0-c4-dd-f2")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		for _, mac := range []string{"", "not-a-mac", "AC:5A:F0:C4:DD", "AC:5A:F0:C4:DD:F2:01:02"} {
			_, err := MagicPacket(mac)
			assert.Error(t, err, mac)
		}
	})
}

func TestWake(t *testing.T) {
	// Listen on loopback and point the "broadcast" there.
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UDPAddr)
	require.NoError(t, Wake("AC:5A:F0:C4:DD:F2", "127.0.0.1", addr.Port))

	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, 102, n)

	want, err := MagicPacket("AC:5A:F0:C4:DD:F2")
	require.NoError(t, err)
	assert.Equal(t, want, buf[:n])
}
