// Package device deriva un nombre legible de dispositivo a partir del user agent.
package device

import (
	"strings"

	"github.com/mssola/user_agent"
)

// Type clasifica el dispositivo.
type Type string

const (
	Desktop Type = "desktop"
	Mobile  Type = "mobile"
	Tablet  Type = "tablet"
	Bot     Type = "bot"
	Unknown Type = "unknown"
)

// Info resume lo que se puede extraer de un user agent.
type Info struct {
	Browser        string
	BrowserVersion string
	OS             string
	Type           Type
}

// Parse extrae navegador, sistema operativo y tipo del user agent.
func Parse(userAgent string) Info {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Info{Type: Unknown}
	}

	ua := user_agent.New(userAgent)
	browser, version := ua.Browser()
	info := Info{
		Browser:        browser,
		BrowserVersion: majorVersion(version),
		OS:             ua.OS(),
		Type:           Desktop,
	}

	lower := strings.ToLower(userAgent)
	switch {
	case strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad"):
		info.Type = Tablet
	case ua.Mobile():
		info.Type = Mobile
	case ua.Bot():
		info.Type = Bot
	}
	return info
}

// Name devuelve algo como "Chrome 120 on Windows 10".
func Name(userAgent string) string {
	info := Parse(userAgent)
	if info.Type == Unknown {
		return "Unknown device"
	}

	var name string
	if info.Browser != "" {
		name = info.Browser
		if info.BrowserVersion != "" {
			name += " " + info.BrowserVersion
		}
	}
	if info.OS != "" {
		if name != "" {
			name += " on "
		}
		name += info.OS
	}
	if name == "" {
		return "Unknown device"
	}
	if info.Type != Desktop {
		name += " (" + string(info.Type) + ")"
	}
	return name
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i > 0 {
		return v[:i]
	}
	return v
}
