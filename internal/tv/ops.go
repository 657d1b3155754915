package tv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmaia/tvctl/internal/ssap"
)

// Typed payload shapes for the operations the dashboard consumes. Anything
// else is passed through as raw JSON.

// VolumeStatus is the audio state reported by the TV.
type VolumeStatus struct {
	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`
}

// AppInfo describes an installed application.
type AppInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

// ForegroundApp is the currently visible application.
type ForegroundApp struct {
	AppID     string `json:"appId"`
	WindowID  string `json:"windowId"`
	ProcessID string `json:"processId"`
}

// InputDevice describes an external input (HDMI, AV, ...).
type InputDevice struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	Connected bool   `json:"connected"`
}

// Channel describes one tuner channel.
type Channel struct {
	ChannelID     string `json:"channelId"`
	ChannelNumber string `json:"channelNumber"`
	ChannelName   string `json:"channelName"`
}

// --- audio ---

func (c *Client) GetVolume(ctx context.Context) (VolumeStatus, error) {
	var vs VolumeStatus
	err := c.requestInto(ctx, ssap.URIGetVolume, nil, &vs)
	return vs, err
}

func (c *Client) SetVolume(ctx context.Context, level int) error {
	_, err := c.Request(ctx, ssap.URISetVolume, map[string]any{"volume": level})
	return err
}

func (c *Client) VolumeUp(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIVolumeUp, nil)
	return err
}

func (c *Client) VolumeDown(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIVolumeDown, nil)
	return err
}

func (c *Client) SetMute(ctx context.Context, mute bool) error {
	_, err := c.Request(ctx, ssap.URISetMute, map[string]any{"mute": mute})
	return err
}

// --- power / screen ---

func (c *Client) PowerOff(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIPowerOff, nil)
	return err
}

func (c *Client) PowerState(ctx context.Context) (json.RawMessage, error) {
	return c.Request(ctx, ssap.URIPowerState, nil)
}

func (c *Client) ScreenOff(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIScreenOff, nil)
	return err
}

func (c *Client) ScreenOn(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIScreenOn, nil)
	return err
}

// --- apps ---

func (c *Client) GetApps(ctx context.Context) ([]AppInfo, error) {
	var body struct {
		Apps []AppInfo `json:"apps"`
	}
	if err := c.requestInto(ctx, ssap.URIListApps, nil, &body); err != nil {
		return nil, err
	}
	return body.Apps, nil
}

// LaunchApp starts an application. The id may be a friendly alias
// (e.g. "netflix") or a raw webOS application id.
func (c *Client) LaunchApp(ctx context.Context, appID string, params map[string]any) error {
	payload := map[string]any{"id": ssap.ResolveAppID(appID)}
	if len(params) > 0 {
		payload["params"] = params
	}
	_, err := c.Request(ctx, ssap.URILaunchApp, payload)
	return err
}

func (c *Client) CloseApp(ctx context.Context, appID string) error {
	_, err := c.Request(ctx, ssap.URICloseApp, map[string]any{"id": ssap.ResolveAppID(appID)})
	return err
}

func (c *Client) GetForegroundApp(ctx context.Context) (ForegroundApp, error) {
	var fg ForegroundApp
	err := c.requestInto(ctx, ssap.URIForegroundApp, nil, &fg)
	return fg, err
}

// --- inputs ---

func (c *Client) GetInputs(ctx context.Context) ([]InputDevice, error) {
	var body struct {
		Devices []InputDevice `json:"devices"`
	}
	if err := c.requestInto(ctx, ssap.URIGetInputs, nil, &body); err != nil {
		return nil, err
	}
	return body.Devices, nil
}

func (c *Client) SetInput(ctx context.Context, inputID string) error {
	_, err := c.Request(ctx, ssap.URISwitchInput, map[string]any{"inputId": inputID})
	return err
}

// --- channels ---

func (c *Client) GetChannels(ctx context.Context) ([]Channel, error) {
	var body struct {
		ChannelList []Channel `json:"channelList"`
	}
	if err := c.requestInto(ctx, ssap.URIGetChannels, nil, &body); err != nil {
		return nil, err
	}
	return body.ChannelList, nil
}

func (c *Client) GetCurrentChannel(ctx context.Context) (Channel, error) {
	var ch Channel
	err := c.requestInto(ctx, ssap.URICurrentChannel, nil, &ch)
	return ch, err
}

func (c *Client) SetChannel(ctx context.Context, channelID string) error {
	_, err := c.Request(ctx, ssap.URIOpenChannel, map[string]any{"channelId": channelID})
	return err
}

func (c *Client) ChannelUp(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIChannelUp, nil)
	return err
}

func (c *Client) ChannelDown(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URIChannelDown, nil)
	return err
}

// --- media transport ---

func (c *Client) Play(ctx context.Context) error        { return c.fire(ctx, ssap.URIMediaPlay) }
func (c *Client) Pause(ctx context.Context) error       { return c.fire(ctx, ssap.URIMediaPause) }
func (c *Client) Stop(ctx context.Context) error        { return c.fire(ctx, ssap.URIMediaStop) }
func (c *Client) Rewind(ctx context.Context) error      { return c.fire(ctx, ssap.URIMediaRewind) }
func (c *Client) FastForward(ctx context.Context) error { return c.fire(ctx, ssap.URIMediaFastForward) }

// --- notifications ---

func (c *Client) Toast(ctx context.Context, message string) error {
	_, err := c.Request(ctx, ssap.URIToast, map[string]any{"message": message})
	return err
}

// --- text entry ---

func (c *Client) SendText(ctx context.Context, text string) error {
	_, err := c.Request(ctx, ssap.URIInsertText, map[string]any{"text": text, "replace": 0})
	return err
}

func (c *Client) SendEnter(ctx context.Context) error {
	_, err := c.Request(ctx, ssap.URISendEnter, nil)
	return err
}

func (c *Client) SendDelete(ctx context.Context, count int) error {
	if count < 1 {
		count = 1
	}
	_, err := c.Request(ctx, ssap.URIDeleteChars, map[string]any{"count": count})
	return err
}

// --- system info ---

func (c *Client) GetServices(ctx context.Context) ([]map[string]any, error) {
	var body struct {
		Services []map[string]any `json:"services"`
	}
	if err := c.requestInto(ctx, ssap.URIGetServices, nil, &body); err != nil {
		return nil, err
	}
	return body.Services, nil
}

func (c *Client) GetSystemInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Request(ctx, ssap.URISystemInfo, nil)
}

func (c *Client) GetSoftwareInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Request(ctx, ssap.URISoftwareInfo, nil)
}

// fire issues a request whose response payload carries nothing of interest.
func (c *Client) fire(ctx context.Context, uri ssap.URI) error {
	_, err := c.Request(ctx, uri, nil)
	return err
}

// requestInto issues a request and decodes the response payload into out.
func (c *Client) requestInto(ctx context.Context, uri ssap.URI, payload, out any) error {
	raw, err := c.Request(ctx, uri, payload)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", uri, err)
	}
	return nil
}
