package ssap

// URI addresses a single operation or query exposed by the TV. The catalogue
// below is closed on purpose: operations are selected by constant, never by a
// caller-supplied string, while the wire format keeps the raw ssap:// form.
type URI string

const (
	// System
	URIGetServices  URI = "ssap://api/getServiceList"
	URIPowerOff     URI = "ssap://system/turnOff"
	URIPowerState   URI = "ssap://com.webos.service.tvpower/power/getPowerState"
	URISystemInfo   URI = "ssap://system/getSystemInfo"
	URISoftwareInfo URI = "ssap://com.webos.service.update/getCurrentSWInformation"

	// Audio
	URIGetVolume  URI = "ssap://audio/getVolume"
	URISetVolume  URI = "ssap://audio/setVolume"
	URIVolumeUp   URI = "ssap://audio/volumeUp"
	URIVolumeDown URI = "ssap://audio/volumeDown"
	URISetMute    URI = "ssap://audio/setMute"
	URIGetMute    URI = "ssap://audio/getStatus"

	// Channels
	URIGetChannels    URI = "ssap://tv/getChannelList"
	URICurrentChannel URI = "ssap://tv/getCurrentChannel"
	URIOpenChannel    URI = "ssap://tv/openChannel"
	URIChannelUp      URI = "ssap://tv/channelUp"
	URIChannelDown    URI = "ssap://tv/channelDown"

	// External inputs
	URIGetInputs   URI = "ssap://tv/getExternalInputList"
	URISwitchInput URI = "ssap://tv/switchInput"

	// Apps
	URIListApps      URI = "ssap://com.webos.applicationManager/listApps"
	URILaunchApp     URI = "ssap://system.launcher/launch"
	URICloseApp      URI = "ssap://system.launcher/close"
	URIForegroundApp URI = "ssap://com.webos.applicationManager/getForegroundAppInfo"

	// Media transport
	URIMediaPlay        URI = "ssap://media.controls/play"
	URIMediaPause       URI = "ssap://media.controls/pause"
	URIMediaStop        URI = "ssap://media.controls/stop"
	URIMediaRewind      URI = "ssap://media.controls/rewind"
	URIMediaFastForward URI = "ssap://media.controls/fastForward"

	// Notifications
	URIToast URI = "ssap://system.notifications/createToast"

	// Pointer / text input
	URIPointerSocket URI = "ssap://com.webos.service.networkinput/getPointerInputSocket"
	URIInsertText    URI = "ssap://com.webos.service.ime/insertText"
	URIDeleteChars   URI = "ssap://com.webos.service.ime/deleteCharacters"
	URISendEnter     URI = "ssap://com.webos.service.ime/sendEnterKey"

	// Screen
	URIScreenOff URI = "ssap://com.webos.service.tvpower/power/turnOffScreen"
	URIScreenOn  URI = "ssap://com.webos.service.tvpower/power/turnOnScreen"
)

// appAliases maps short friendly names to webOS application ids.
var appAliases = map[string]string{
	"netflix":      "netflix",
	"youtube":      "youtube.leanback.v4",
	"amazon_prime": "amazon.lovefilm.de",
	"disney_plus":  "com.disney.disneyplus-prod",
	"spotify":      "spotify-beehive",
	"browser":      "com.webos.app.browser",
	"hdmi1":        "com.webos.app.hdmi1",
	"hdmi2":        "com.webos.app.hdmi2",
	"hdmi3":        "com.webos.app.hdmi3",
	"live_tv":      "com.webos.app.livetv",
	"lg_channels":  "com.webos.app.lgchannels",
	"settings":     "com.palm.app.settings",
	"media_player": "com.webos.app.mediadiscovery",
}

// ResolveAppID translates a friendly alias to its webOS application id.
// Unknown names pass through unchanged so raw ids keep working.
func ResolveAppID(name string) string {
	if id, ok := appAliases[name]; ok {
		return id
	}
	return name
}
