package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// Device describes the client that requested a verification code
type Device struct {
	Type    string `json:"type"` // mobile, tablet, desktop, bot, unknown
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

var tabletMarkers = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "sm-t"}

// ParseDevice extracts the device type, OS and browser from a User-Agent header
func ParseDevice(userAgent string) Device {
	if userAgent == "" || userAgent == unknownUserAgent {
		return Device{Type: "unknown", OS: "Unknown", Browser: "Unknown"}
	}

	parser := ua.New(userAgent)
	device := Device{
		Type:    deviceType(parser),
		OS:      "Unknown",
		Browser: "Unknown",
	}

	if os := parser.OSInfo(); os.Name != "" {
		device.OS = strings.TrimSpace(os.Name + " " + os.Version)
	}
	if name, _ := parser.Browser(); name != "" {
		device.Browser = name
	}
	return device
}

func deviceType(parser *ua.UserAgent) string {
	switch {
	case parser.Bot():
		return "bot"
	case !parser.Mobile():
		return "desktop"
	}

	lower := strings.ToLower(parser.UA())
	for _, marker := range tabletMarkers {
		if strings.Contains(lower, marker) {
			return "tablet"
		}
	}
	return "mobile"
}
