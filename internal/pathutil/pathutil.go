package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// SettingsDirName is kept from the first releases so existing settings
	// files are still found.
	SettingsDirName = "KindleSend"
	LogDirName      = "Keen"
)

func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return filepath.Clean(p)
		}
		if p == "~" {
			return filepath.Clean(home)
		}
		return filepath.Clean(filepath.Join(home, strings.TrimPrefix(p, "~/")))
	}
	return filepath.Clean(p)
}

// SettingsDir is ~/Library/Application Support/KindleSend on macOS and the
// platform user config dir elsewhere.
func SettingsDir() string {
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		base = ExpandHomePath("~/.config")
	}
	return filepath.Join(base, SettingsDirName)
}

// LogDir is ~/Library/Logs/Keen on macOS and <user cache dir>/Keen/logs
// elsewhere.
func LogDir() string {
	if runtime.GOOS == "darwin" {
		return ExpandHomePath(filepath.Join("~", "Library", "Logs", LogDirName))
	}
	base, err := os.UserCacheDir()
	if err != nil || strings.TrimSpace(base) == "" {
		base = ExpandHomePath("~/.cache")
	}
	return filepath.Join(base, LogDirName, "logs")
}
