package guard

import "time"

type Config struct {
	// DNSTimeout bounds every resolution. Zero means 5s.
	DNSTimeout time.Duration
	// DialTimeout bounds a single TCP connect in DialContext. Zero means 30s.
	DialTimeout time.Duration

	Redaction RedactionConfig
	Audit     AuditConfig
}

type RedactionConfig struct {
	Enabled  bool
	Patterns []RegexPattern
}

type RegexPattern struct {
	Name string `mapstructure:"name"`
	Re   string `mapstructure:"re"`
}

type AuditConfig struct {
	JSONLPath      string
	RotateMaxBytes int64
}
