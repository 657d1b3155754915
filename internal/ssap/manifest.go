package ssap

import (
	"encoding/json"
	"fmt"
)

// registerManifest is the static capability manifest sent during the pairing
// handshake. The TV treats it as an opaque permission request; it is not
// modeled beyond being valid JSON.
const registerManifest = `{
  "forcePairing": false,
  "pairingType": "PROMPT",
  "manifest": {
    "manifestVersion": 1,
    "appVersion": "1.1",
    "signed": {
      "created": "20140509",
      "appId": "com.lge.test",
      "vendorId": "com.lge",
      "localizedAppNames": {"": "TV Control Dashboard"},
      "localizedVendorNames": {"": "LG Electronics"},
      "permissions": [
        "TEST_SECURE", "CONTROL_INPUT_JOYSTICK", "CONTROL_INPUT_MEDIA_RECORDING",
        "CONTROL_INPUT_MEDIA_PLAYBACK", "CONTROL_INPUT_TV", "CONTROL_POWER",
        "READ_APP_STATUS", "READ_CURRENT_CHANNEL", "READ_INPUT_DEVICE_LIST",
        "READ_NETWORK_STATE", "READ_RUNNING_APPS", "READ_TV_CHANNEL_LIST",
        "WRITE_NOTIFICATION", "READ_POWER_STATE", "READ_COUNTRY_INFO",
        "READ_SETTINGS", "CONTROL_TV_SCREEN", "CONTROL_TV_STANBY",
        "CONTROL_FAVORITE_GROUP", "CONTROL_USER_INFO", "CHECK_BLUETOOTH_DEVICE",
        "CONTROL_BLUETOOTH", "CONTROL_CAPTION", "CONTROL_DEVICE_STORAGE",
        "READ_INSTALLED_APPS", "CONTROL_INPUT_TEXT", "CONTROL_MOUSE_AND_KEYBOARD",
        "READ_TV_CONTENT_STATE", "READ_TV_CURRENT_TIME", "CONTROL_TV_TIMER",
        "LAUNCH", "LAUNCH_WEBAPP", "CONTROL_AUDIO", "CONTROL_DISPLAY"
      ],
      "serial": "2f930e2d2cfe083771f68e4fe7983211"
    },
    "permissions": [
      "LAUNCH", "LAUNCH_WEBAPP", "APP_TO_APP", "CLOSE",
      "TEST_OPEN", "TEST_PROTECTED", "CONTROL_AUDIO",
      "CONTROL_DISPLAY", "CONTROL_INPUT_JOYSTICK",
      "CONTROL_INPUT_MEDIA_RECORDING", "CONTROL_INPUT_MEDIA_PLAYBACK",
      "CONTROL_INPUT_TV", "CONTROL_POWER", "READ_APP_STATUS",
      "READ_CURRENT_CHANNEL", "READ_INPUT_DEVICE_LIST",
      "READ_NETWORK_STATE", "READ_INSTALLED_APPS", "READ_RUNNING_APPS",
      "READ_TV_CHANNEL_LIST", "WRITE_NOTIFICATION", "READ_POWER_STATE",
      "READ_COUNTRY_INFO", "READ_SETTINGS", "CONTROL_TV_SCREEN",
      "CONTROL_TV_STANBY", "CONTROL_FAVORITE_GROUP", "CONTROL_USER_INFO",
      "CHECK_BLUETOOTH_DEVICE", "CONTROL_BLUETOOTH", "CONTROL_CAPTION",
      "CONTROL_DEVICE_STORAGE", "READ_TV_CONTENT_STATE",
      "READ_TV_CURRENT_TIME", "CONTROL_TV_TIMER",
      "CONTROL_MOUSE_AND_KEYBOARD", "CONTROL_INPUT_TEXT"
    ]
  }
}`

// RegisterPayload returns the handshake payload, with the cached client-key
// merged in when one is available.
func RegisterPayload(clientKey string) (json.RawMessage, error) {
	if clientKey == "" {
		return json.RawMessage(registerManifest), nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(registerManifest), &payload); err != nil {
		return nil, fmt.Errorf("ssap: register manifest: %w", err)
	}
	payload["client-key"] = clientKey

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ssap: register payload: %w", err)
	}
	return raw, nil
}

// RegisteredClientKey extracts the client-key from a registered frame payload.
// Returns "" when the payload carries none.
func RegisteredClientKey(payload json.RawMessage) string {
	var body struct {
		ClientKey string `json:"client-key"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.ClientKey
}
