package ssap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	t.Run("unmarshal valid response frame", func(t *testing.T) {
		input := []byte(`{"type":"response","id":"abc-123","payload":{"returnValue":true,"volume":12}}`)
		msg, err := ParseMessage(input)
		require.NoError(t, err)
		assert.Equal(t, TypeResponse, msg.Type)
		assert.Equal(t, "abc-123", msg.ID)
		assert.NotNil(t, msg.Payload) // payload captured as raw JSON
	})

	t.Run("unmarshal registered frame with client key", func(t *testing.T) {
		input := []byte(`{"type":"registered","id":"reg-1","payload":{"client-key":"deadbeef"}}`)
		msg, err := ParseMessage(input)
		require.NoError(t, err)
		assert.Equal(t, TypeRegistered, msg.Type)
		assert.Equal(t, "deadbeef", RegisteredClientKey(msg.Payload))
	})

	t.Run("unmarshal error frame", func(t *testing.T) {
		input := []byte(`{"type":"error","id":"abc-123","error":"401 insufficient permissions","payload":{}}`)
		msg, err := ParseMessage(input)
		require.NoError(t, err)
		assert.Equal(t, TypeError, msg.Type)
		assert.Equal(t, "401 insufficient permissions", msg.Error)
	})

	t.Run("should return error for bad json", func(t *testing.T) {
		msg, err := ParseMessage([]byte(`{broken json!!!`))
		assert.Error(t, err)
		assert.Nil(t, msg)
		assert.Contains(t, err.Error(), "INVALID_JSON")
	})

	t.Run("should return error for empty bytes", func(t *testing.T) {
		msg, err := ParseMessage([]byte{})
		assert.Error(t, err)
		assert.Nil(t, msg)
		assert.Contains(t, err.Error(), "INVALID_JSON")
	})

	t.Run("should return error for json without type key", func(t *testing.T) {
		msg, err := ParseMessage([]byte(`{"id":"abc"}`))
		assert.Error(t, err)
		assert.Nil(t, msg)
		assert.Contains(t, err.Error(), "MISSING_FIELD")
		assert.Contains(t, err.Error(), "field=type")
	})

	t.Run("should return error for inbound frame without id", func(t *testing.T) {
		msg, err := ParseMessage([]byte(`{"type":"response","payload":{}}`))
		assert.Error(t, err)
		assert.Nil(t, msg)
		assert.Contains(t, err.Error(), "MISSING_FIELD")
		assert.Contains(t, err.Error(), "field=id")
	})

	t.Run("should return error for outbound-only types", func(t *testing.T) {
		// The TV never sends these; receiving one means a confused peer.
		for _, typ := range []string{"register", "request", "subscribe", "unsubscribe", "wat"} {
			msg, err := ParseMessage([]byte(`{"type":"` + typ + `","id":"abc"}`))
			assert.Error(t, err, typ)
			assert.Nil(t, msg)
			assert.Contains(t, err.Error(), "UNKNOWN_TYPE")
		}
	})
}
