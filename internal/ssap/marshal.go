package ssap

import (
	"encoding/json"
	"fmt"
)

// MarshalRequest builds a JSON-encoded request frame.
func MarshalRequest(id string, uri URI, payload any) ([]byte, error) {
	return marshalOutbound(TypeRequest, id, uri, payload)
}

// MarshalSubscribe builds a JSON-encoded subscribe frame.
func MarshalSubscribe(id string, uri URI) ([]byte, error) {
	return marshalOutbound(TypeSubscribe, id, uri, nil)
}

// MarshalUnsubscribe builds a JSON-encoded unsubscribe frame. The id must be
// the one returned when the subscription was established.
func MarshalUnsubscribe(id string) ([]byte, error) {
	if id == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: "unsubscribe frame missing required \"id\" field"}
	}
	return json.Marshal(Message{Type: TypeUnsubscribe, ID: id})
}

// MarshalRegister builds the pairing handshake frame. When clientKey is
// non-empty it is replayed inside the manifest payload so the TV can skip the
// on-screen approval prompt.
func MarshalRegister(id, clientKey string) ([]byte, error) {
	if id == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: "register frame missing required \"id\" field"}
	}
	payload, err := RegisterPayload(clientKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: TypeRegister, ID: id, Payload: payload})
}

func marshalOutbound(typ MessageType, id string, uri URI, payload any) ([]byte, error) {
	if id == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: fmt.Sprintf("%s frame missing required \"id\" field", typ)}
	}
	if uri == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "uri", Message: fmt.Sprintf("%s frame missing required \"uri\" field", typ)}
	}

	msg := Message{Type: typ, ID: id, URI: uri}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("failed to marshal %s payload: %v", typ, err)}
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
