package config

import (
	"errors"
	"fmt"
	"strings"
)

// EnvPrefix prefixes every environment setting.
const EnvPrefix = "TTYCORE_"

// envAliases maps short variable names to setting keys.
func envAliases() map[string]string {
	return map[string]string{
		"TTYCORE_LOG":      "log.level",
		"TTYCORE_TTYS":     "tty.count",
		"TTYCORE_WIDTH":    "display.width",
		"TTYCORE_HEIGHT":   "display.height",
		"TTYCORE_FG":       "display.foreground",
		"TTYCORE_BG":       "display.background",
		"TTYCORE_INIT":     "script.init",
	}
}

// ApplyEnv overlays TTYCORE_* variables from environ ("KEY=value" pairs,
// as from os.Environ). TTYCORE_SECTION_NAME sets "section.name", so
// TTYCORE_DISPLAY_TAB_SIZE sets display.tab_size. Variables naming no
// setting are ignored.
func (c *Config) ApplyEnv(environ []string) error {
	aliases := envAliases()
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key, ok := aliases[name]
		if !ok {
			key, ok = envKey(name)
			if !ok {
				continue
			}
		}
		if err := c.Set(key, value); err != nil {
			if errors.Is(err, ErrUnknownKey) {
				continue
			}
			return fmt.Errorf("environment %s: %w", name, err)
		}
	}
	return nil
}

// envKey converts TTYCORE_SECTION_NAME into "section.name".
func envKey(name string) (string, bool) {
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || section == "" || field == "" {
		return "", false
	}
	return section + "." + field, true
}
