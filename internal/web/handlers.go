package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tmaia/tvctl/internal/presets"
	"github.com/tmaia/tvctl/internal/tv"
	"github.com/tmaia/tvctl/internal/wol"
)

type apiError struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

func writeOK(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// writeErr maps client failures onto HTTP statuses. Connection problems are
// 503 so the dashboard can tell "TV unreachable" apart from "TV refused".
func writeErr(w http.ResponseWriter, err error) {
	var devErr *tv.DeviceError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tv.ErrNotConnected), errors.Is(err, tv.ErrConnectionLost):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tv.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &devErr):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, apiError{OK: false, Message: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, apiError{OK: false, Message: fmt.Sprintf(format, args...)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return false
	}
	return true
}

// --- connection ---

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.tv.IsConnected() {
		writeOK(w, map[string]any{"connected": true, "message": "already connected"})
		return
	}

	if err := s.tv.Connect(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	s.startFeeds()
	writeOK(w, map[string]any{"connected": true})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.tv.Disconnect()
	writeOK(w, map[string]any{"connected": false})
}

// handleStatus gathers a best-effort snapshot. Individual probe failures are
// reported as absent fields, not as an error status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"connected": s.tv.IsConnected(),
		"host":      s.tv.Host(),
	}
	if !s.tv.IsConnected() {
		writeOK(w, status)
		return
	}

	if vs, err := s.tv.GetVolume(r.Context()); err == nil {
		status["volume"] = vs.Volume
		status["muted"] = vs.Muted
	}
	if fg, err := s.tv.GetForegroundApp(r.Context()); err == nil {
		status["foreground_app"] = fg.AppID
	}
	writeOK(w, status)
}

// --- audio ---

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	vs, err := s.tv.GetVolume(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, vs)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
		Level  *int   `json:"level"`
		Mute   *bool  `json:"mute"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var err error
	switch body.Action {
	case "up":
		err = s.tv.VolumeUp(r.Context())
	case "down":
		err = s.tv.VolumeDown(r.Context())
	case "set":
		if body.Level == nil || *body.Level < 0 || *body.Level > 100 {
			writeBadRequest(w, "level must be between 0 and 100")
			return
		}
		err = s.tv.SetVolume(r.Context(), *body.Level)
	case "mute":
		if body.Mute == nil {
			writeBadRequest(w, "mute flag required")
			return
		}
		err = s.tv.SetMute(r.Context(), *body.Mute)
	default:
		writeBadRequest(w, "unknown volume action %q", body.Action)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

// --- power ---

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	switch body.Action {
	case "on":
		// Wake-on-LAN is the only way to reach a TV that is fully off.
		if s.cfg.TVMAC == "" {
			writeBadRequest(w, "no TV MAC address configured")
			return
		}
		if err := wol.Wake(s.cfg.TVMAC, s.cfg.WakeBroadcast, wol.DefaultPort); err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{OK: false, Message: err.Error()})
			return
		}
		writeOK(w, map[string]any{"message": "magic packet sent"})
		return
	case "off":
		if err := s.tv.PowerOff(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
	case "screen_off":
		if err := s.tv.ScreenOff(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
	case "screen_on":
		if err := s.tv.ScreenOn(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
	default:
		writeBadRequest(w, "unknown power action %q", body.Action)
		return
	}
	writeOK(w, nil)
}

// --- apps ---

func (s *Server) handleGetApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.tv.GetApps(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	sort.Slice(apps, func(i, j int) bool {
		return strings.ToLower(apps[i].Title) < strings.ToLower(apps[j].Title)
	})
	writeOK(w, apps)
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string         `json:"action"`
		AppID  string         `json:"app_id"`
		Params map[string]any `json:"params"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.AppID == "" {
		writeBadRequest(w, "app_id required")
		return
	}

	var err error
	switch body.Action {
	case "launch", "":
		err = s.tv.LaunchApp(r.Context(), body.AppID, body.Params)
	case "close":
		err = s.tv.CloseApp(r.Context(), body.AppID)
	default:
		writeBadRequest(w, "unknown app action %q", body.Action)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

// --- inputs ---

func (s *Server) handleGetInputs(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.tv.GetInputs(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, inputs)
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InputID string `json:"input_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.InputID == "" {
		writeBadRequest(w, "input_id required")
		return
	}
	if err := s.tv.SetInput(r.Context(), body.InputID); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

// --- channels ---

func (s *Server) handleGetChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.tv.GetChannels(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	current, _ := s.tv.GetCurrentChannel(r.Context())
	writeOK(w, map[string]any{"channels": channels, "current": current})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action    string `json:"action"`
		ChannelID string `json:"channel_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var err error
	switch body.Action {
	case "up":
		err = s.tv.ChannelUp(r.Context())
	case "down":
		err = s.tv.ChannelDown(r.Context())
	case "set":
		if body.ChannelID == "" {
			writeBadRequest(w, "channel_id required")
			return
		}
		err = s.tv.SetChannel(r.Context(), body.ChannelID)
	default:
		writeBadRequest(w, "unknown channel action %q", body.Action)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

// --- media / notifications ---

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var err error
	switch body.Action {
	case "play":
		err = s.tv.Play(r.Context())
	case "pause":
		err = s.tv.Pause(r.Context())
	case "stop":
		err = s.tv.Stop(r.Context())
	case "rewind":
		err = s.tv.Rewind(r.Context())
	case "fast_forward":
		err = s.tv.FastForward(r.Context())
	default:
		writeBadRequest(w, "unknown media action %q", body.Action)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleToast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Message == "" {
		writeBadRequest(w, "message required")
		return
	}
	if err := s.tv.Toast(r.Context(), body.Message); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

// --- remote input ---

func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
		Button string `json:"button"`
		DX     int    `json:"dx"`
		DY     int    `json:"dy"`
		Text   string `json:"text"`
		Count  int    `json:"count"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var err error
	switch body.Action {
	case "button":
		if body.Button == "" {
			writeBadRequest(w, "button required")
			return
		}
		err = s.tv.SendButton(r.Context(), body.Button)
	case "move":
		err = s.tv.PointerMove(r.Context(), body.DX, body.DY)
	case "click":
		err = s.tv.PointerClick(r.Context())
	case "scroll":
		err = s.tv.PointerScroll(r.Context(), body.DY)
	case "text":
		err = s.tv.SendText(r.Context(), body.Text)
	case "enter":
		err = s.tv.SendEnter(r.Context())
	case "delete":
		err = s.tv.SendDelete(r.Context(), body.Count)
	default:
		writeBadRequest(w, "unknown remote action %q", body.Action)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

// --- info ---

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{}

	if sysInfo, err := s.tv.GetSystemInfo(r.Context()); err == nil {
		info["system"] = sysInfo
	}
	if swInfo, err := s.tv.GetSoftwareInfo(r.Context()); err == nil {
		info["software"] = swInfo
	}
	if fg, err := s.tv.GetForegroundApp(r.Context()); err == nil {
		info["foreground_app"] = fg
	}
	if len(info) == 0 {
		writeErr(w, tv.ErrNotConnected)
		return
	}
	writeOK(w, info)
}

// --- presets ---

func (s *Server) handleGetPresets(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.presets.List())
}

func (s *Server) handleAddPreset(w http.ResponseWriter, r *http.Request) {
	var p presets.Preset
	if !decodeBody(w, r, &p) {
		return
	}
	if err := s.presets.Add(p); err != nil {
		writeBadRequest(w, "%v", err)
		return
	}
	writeOK(w, p)
}

func (s *Server) handleRemovePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.presets.Remove(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, apiError{OK: false, Message: err.Error()})
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	p, ok := s.presets.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{OK: false, Message: "preset not found"})
		return
	}
	if err := presets.Apply(r.Context(), p, s.tv); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}
