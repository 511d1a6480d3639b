package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings tune fetching and extraction. Every field has a safe default so
// a partial or missing settings file never breaks a send.
type Settings struct {
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	MaxFileSize      int64         `yaml:"max_file_size"`
	MinFileSize      int64         `yaml:"min_file_size"`
	MaxRedirects     int           `yaml:"max_redirects"`
	MinExtractedSize int           `yaml:"min_extracted_size"`
	MinOutputSize    int           `yaml:"min_output_size"`
	UserAgents       []string      `yaml:"user_agents"`
	Cookie           string        `yaml:"cookie"`
}

func DefaultSettings() Settings {
	return Settings{
		DownloadTimeout:  30 * time.Second,
		MaxFileSize:      20_000_000,
		MinFileSize:      10,
		MaxRedirects:     2,
		MinExtractedSize: 250,
		MinOutputSize:    1,
	}
}

// LoadSettings overlays the YAML file at path on DefaultSettings. An empty
// path or a missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	path = strings.TrimSpace(path)
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse extraction settings %s: %w", path, err)
	}
	return s.WithDefaults(), nil
}

// UserAgent is the first configured user agent, "" when none is set.
func (s Settings) UserAgent() string {
	for _, ua := range s.UserAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			return ua
		}
	}
	return ""
}

// WithDefaults fills unset or invalid fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.DownloadTimeout <= 0 {
		s.DownloadTimeout = d.DownloadTimeout
	}
	if s.MaxFileSize <= 0 {
		s.MaxFileSize = d.MaxFileSize
	}
	if s.MinFileSize < 0 {
		s.MinFileSize = d.MinFileSize
	}
	if s.MaxRedirects < 0 {
		s.MaxRedirects = d.MaxRedirects
	}
	if s.MinExtractedSize < 0 {
		s.MinExtractedSize = d.MinExtractedSize
	}
	if s.MinOutputSize <= 0 {
		s.MinOutputSize = d.MinOutputSize
	}
	return s
}
