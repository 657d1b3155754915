package ssap

import (
	"encoding/json"
	"fmt"
)

// FrameError carries structured context for observability.
type FrameError struct {
	Code    string // e.g. "INVALID_JSON", "MISSING_FIELD", "UNKNOWN_TYPE"
	Field   string // which field was the problem, if applicable
	Message string // human-readable detail
}

func (e *FrameError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ssap: frame error [%s]: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("ssap: frame error [%s]: %s", e.Code, e.Message)
}

// MessageType discriminates SSAP frames. The first four are client-to-TV,
// the rest TV-to-client. Subscription pushes arrive as TypeResponse frames
// reusing the subscribe id.
type MessageType string

const (
	TypeRegister    MessageType = "register"
	TypeRequest     MessageType = "request"
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"

	TypeResponse   MessageType = "response"
	TypeRegistered MessageType = "registered"
	TypeError      MessageType = "error"
)

// Message is a single SSAP frame. Payload is kept raw; callers decode it
// against the shape of the operation they issued.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	URI     URI             `json:"uri,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ParseMessage decodes and validates a single inbound frame.
// Every frame the TV sends back carries a correlation id.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid frame JSON: %v", err)}
	}

	if msg.Type == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "type", Message: "frame missing required \"type\" field"}
	}

	switch msg.Type {
	case TypeResponse, TypeRegistered, TypeError:
		if msg.ID == "" {
			return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: fmt.Sprintf("%s frame missing required \"id\" field", msg.Type)}
		}
		return &msg, nil
	default:
		return nil, &FrameError{Code: "UNKNOWN_TYPE", Message: fmt.Sprintf("unexpected inbound frame type: %q", msg.Type)}
	}
}
