package config

import (
	"github.com/go-ini/ini"
)

// DefaultEntry is the file that "read" extracts if neither flags nor configuration name one.
const DefaultEntry = "config.ini"

// DefaultPrefixSize is the prefix size convention that "replace" uses if neither flags nor configuration name one.
const DefaultPrefixSize = "embedded"

// ReadConfig contains configuration for the read command.
type ReadConfig struct {
	Entry string
}

// ForRead returns configuration for the read command.
func (l *Loader) ForRead() (c ReadConfig) {
	c.Entry = l.value("read", "entry", DefaultEntry)
	return
}

// ForRead calls Loader.ForRead on the DefaultLoader instance.
func ForRead() ReadConfig {
	return DefaultLoader.ForRead()
}

// ReplaceConfig contains configuration for the replace command.
type ReplaceConfig struct {
	PrefixSize string
}

// ForReplace returns configuration for the replace command.
func (l *Loader) ForReplace() (c ReplaceConfig) {
	c.PrefixSize = l.value("replace", "prefix-size", DefaultPrefixSize)
	return
}

// ForReplace calls Loader.ForReplace on the DefaultLoader instance.
func ForReplace() ReplaceConfig {
	return DefaultLoader.ForReplace()
}

// AWSProfile returns the AWS profile to use.
//
// Loader.Profile takes precedence over the [aws] profile setting. An empty string means the default profile.
func (l *Loader) AWSProfile() string {
	if l.Profile != "" {
		return l.Profile
	}

	return l.value("aws", "profile", "")
}

func (l *Loader) value(section, key, defaultValue string) string {
	if l.cfg == nil {
		l.cfg = ini.Empty()
	}

	sec, err := l.cfg.GetSection(section)
	if err != nil {
		return defaultValue
	}

	if v := sec.Key(key).String(); v != "" {
		return v
	}

	return defaultValue
}
