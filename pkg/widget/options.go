package widget

// DefaultDomain is the hosted video service the page loads the external API from.
const DefaultDomain = "meet.jit.si"

// RoomNamePrefix seeds the fallback room name derived from the appointment id.
const RoomNamePrefix = "HealthChat-"

// ToolbarButtons is the fixed toolbar allow-list shown in the consultation.
var ToolbarButtons = []string{
	"microphone", "camera", "closedcaptions", "desktop", "fullscreen",
	"fodeviceselection", "hangup", "chat", "settings", "raisehand",
	"videoquality", "filmstrip", "feedback", "stats", "shortcuts",
	"tileview", "videobackgroundblur", "download", "help",
}

// Options mirrors the options object accepted by the external API
// constructor. The page supplies parentNode itself.
type Options struct {
	RoomName                 string                   `json:"roomName"`
	Width                    string                   `json:"width"`
	Height                   string                   `json:"height"`
	UserInfo                 UserInfo                 `json:"userInfo"`
	ConfigOverwrite          ConfigOverwrite          `json:"configOverwrite"`
	InterfaceConfigOverwrite InterfaceConfigOverwrite `json:"interfaceConfigOverwrite"`
}

type UserInfo struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Moderator   bool   `json:"moderator"`
}

type ConfigOverwrite struct {
	PrejoinPageEnabled        bool          `json:"prejoinPageEnabled"`
	DisableDeepLinking        bool          `json:"disableDeepLinking"`
	StartWithAudioMuted       bool          `json:"startWithAudioMuted"`
	StartWithVideoMuted       bool          `json:"startWithVideoMuted"`
	EnableLobby               bool          `json:"enableLobby"`
	EnableClosePage           bool          `json:"enableClosePage"`
	DisableModeratorIndicator bool          `json:"disableModeratorIndicator"`
	EnableWelcomePage         bool          `json:"enableWelcomePage"`
	RequireDisplayName        bool          `json:"requireDisplayName"`
	Resolution                int           `json:"resolution"`
	Constraints               Constraints   `json:"constraints"`
	Lobby                     LobbyConfig   `json:"lobby"`
	PrejoinConfig             PrejoinConfig `json:"prejoinConfig"`
}

type Constraints struct {
	Video VideoConstraints `json:"video"`
}

type VideoConstraints struct {
	Height Range `json:"height"`
}

type Range struct {
	Ideal int `json:"ideal"`
	Max   int `json:"max"`
	Min   int `json:"min"`
}

type LobbyConfig struct {
	Enabled   bool `json:"enabled"`
	AutoKnock bool `json:"autoKnock"`
}

type PrejoinConfig struct {
	Enabled bool `json:"enabled"`
}

type InterfaceConfigOverwrite struct {
	ToolbarButtons                []string `json:"TOOLBAR_BUTTONS"`
	ShowJitsiWatermark            bool     `json:"SHOW_JITSI_WATERMARK"`
	ShowWatermarkForGuests        bool     `json:"SHOW_WATERMARK_FOR_GUESTS"`
	DefaultBackground             string   `json:"DEFAULT_BACKGROUND"`
	DisableJoinLeaveNotifications bool     `json:"DISABLE_JOIN_LEAVE_NOTIFICATIONS"`
}

// RoomName returns the configured room, or the appointment-derived fallback
// when the backend supplied none.
func RoomName(configured, appointmentID string) string {
	if configured != "" {
		return configured
	}
	return RoomNamePrefix + appointmentID
}

// NewOptions builds the consultation widget options. Everything except the
// room and the participant identity is fixed.
func NewOptions(roomName, displayName string, moderator bool) *Options {
	buttons := make([]string, len(ToolbarButtons))
	copy(buttons, ToolbarButtons)

	return &Options{
		RoomName: roomName,
		Width:    "100%",
		Height:   "100%",
		UserInfo: UserInfo{
			DisplayName: displayName,
			Email:       "",
			Moderator:   moderator,
		},
		ConfigOverwrite: ConfigOverwrite{
			PrejoinPageEnabled:        false,
			DisableDeepLinking:        true,
			StartWithAudioMuted:       false,
			StartWithVideoMuted:       false,
			EnableLobby:               false,
			EnableClosePage:           false,
			DisableModeratorIndicator: true,
			EnableWelcomePage:         false,
			RequireDisplayName:        false,
			Resolution:                720,
			Constraints: Constraints{
				Video: VideoConstraints{
					Height: Range{Ideal: 720, Max: 720, Min: 240},
				},
			},
			Lobby: LobbyConfig{
				Enabled:   false,
				AutoKnock: true,
			},
			PrejoinConfig: PrejoinConfig{
				Enabled: false,
			},
		},
		InterfaceConfigOverwrite: InterfaceConfigOverwrite{
			ToolbarButtons:                buttons,
			ShowJitsiWatermark:            false,
			ShowWatermarkForGuests:        false,
			DefaultBackground:             "#f0f2f5",
			DisableJoinLeaveNotifications: true,
		},
	}
}
