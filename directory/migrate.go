package directory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Migrate converts a raw directory document into the current record. It
// accepts the versioned form ({"version":1,"entries":{...}}) and the legacy
// flat map whose values are a Lock string, a [lock, lastkey, lastlock, turn]
// array, or a {lock, ro} object (with either lastkey/lastlock or the older
// key_kenc/lock_kenc field names).
func Migrate(raw map[string]any) (*Directory, error) {
	if v, ok := raw["version"]; ok {
		if entries, ok := raw["entries"].(map[string]any); ok {
			version, _ := v.(float64)
			if int(version) > CurrentVersion {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedVersion, v)
			}
			raw = entries
		}
	}

	d := New()
	migrated := 0
	for name, value := range raw {
		name = strings.TrimSpace(name)
		if name == "" || name == "null" || strings.HasPrefix(name, "(Me) ") {
			continue
		}
		e, legacy := migrateEntry(value)
		if e == nil {
			logrus.WithFields(logrus.Fields{
				"function": "Migrate",
				"name":     name,
			}).Warn("Skipping unreadable directory entry")
			continue
		}
		if legacy {
			migrated++
		}
		d.Entries[name] = e
	}

	if migrated > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Migrate",
			"migrated": migrated,
			"total":    len(d.Entries),
		}).Info("Converted legacy directory entries")
	}
	return d, nil
}

func migrateEntry(value any) (*Entry, bool) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}
		return &Entry{Lock: strings.TrimSpace(v)}, true

	case []any:
		if len(v) == 0 {
			return nil, false
		}
		lock, _ := v[0].(string)
		if lock == "" {
			return nil, false
		}
		e := &Entry{Lock: lock}
		ro := &ReadOnce{Turn: TurnReset}
		if len(v) > 1 {
			ro.LastKey, _ = v[1].(string)
		}
		if len(v) > 2 {
			ro.LastLock, _ = v[2].(string)
		}
		if len(v) > 3 {
			ro.Turn = parseTurn(v[3])
		}
		e.RO = ro
		return e, true

	case map[string]any:
		lock, _ := v["lock"].(string)
		if lock == "" {
			return nil, false
		}
		e := &Entry{Lock: lock}
		if ro, ok := v["ro"].(map[string]any); ok {
			e.RO = &ReadOnce{
				LastKey:  firstString(ro, "lastkey", "key_kenc"),
				LastLock: firstString(ro, "lastlock", "lock_kenc"),
				Turn:     parseTurn(ro["turn"]),
			}
		}
		return e, false
	}
	return nil, false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func parseTurn(v any) Turn {
	s, _ := v.(string)
	switch Turn(s) {
	case TurnUnlock, TurnLock:
		return Turn(s)
	}
	return TurnReset
}

// ImportJSON reads a directory export in any supported form.
func ImportJSON(data []byte) (*Directory, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing directory JSON: %w", err)
	}
	return Migrate(raw)
}

// ExportJSON writes the directory in the versioned form.
func ExportJSON(d *Directory) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
