package journal

import (
	"encoding/json"
	"fmt"
)

// Settings are device preferences. Keys this client does not model are kept
// in Extra so they survive a load/save cycle and take part in merges.
type Settings struct {
	Username      string `json:"username"`
	Role          Role   `json:"role"`
	Theme         Theme  `json:"theme"`
	Notifications bool   `json:"notifications"`
	SoundEnabled  bool   `json:"soundEnabled"`

	Extra map[string]json.RawMessage `json:"-"`
}

// settingsFields mirrors Settings without methods so encoding/json does not
// recurse into the custom marshalers.
type settingsFields struct {
	Username      string `json:"username"`
	Role          Role   `json:"role"`
	Theme         Theme  `json:"theme"`
	Notifications bool   `json:"notifications"`
	SoundEnabled  bool   `json:"soundEnabled"`
}

var knownSettingsKeys = map[string]struct{}{
	"username":      {},
	"role":          {},
	"theme":         {},
	"notifications": {},
	"soundEnabled":  {},
}

func DefaultSettings() Settings {
	return Settings{
		Username:      "",
		Role:          RoleKing,
		Theme:         ThemeDark,
		Notifications: true,
		SoundEnabled:  true,
	}
}

func (s Settings) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(settingsFields{
		Username:      s.Username,
		Role:          s.Role,
		Theme:         s.Theme,
		Notifications: s.Notifications,
		SoundEnabled:  s.SoundEnabled,
	})
	if err != nil || len(s.Extra) == 0 {
		return b, err
	}

	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, known := knownSettingsKeys[k]; known {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON starts from DefaultSettings so keys missing from older
// documents take their default value instead of the zero value.
func (s *Settings) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = DefaultSettings()
		return nil
	}

	d := DefaultSettings()
	f := settingsFields{
		Username:      d.Username,
		Role:          d.Role,
		Theme:         d.Theme,
		Notifications: d.Notifications,
		SoundEnabled:  d.SoundEnabled,
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	var extra map[string]json.RawMessage
	for k, v := range raw {
		if _, known := knownSettingsKeys[k]; known {
			continue
		}
		if extra == nil {
			extra = map[string]json.RawMessage{}
		}
		extra[k] = v
	}

	*s = Settings{
		Username:      f.Username,
		Role:          f.Role,
		Theme:         f.Theme,
		Notifications: f.Notifications,
		SoundEnabled:  f.SoundEnabled,
		Extra:         extra,
	}
	return nil
}

// MergeSettings overlays local on top of remote: every key local carries
// wins, keys only remote carries are kept.
func MergeSettings(remote, local Settings) Settings {
	out := local
	if len(remote.Extra) == 0 && len(local.Extra) == 0 {
		out.Extra = nil
		return out
	}
	out.Extra = make(map[string]json.RawMessage, len(remote.Extra)+len(local.Extra))
	for k, v := range remote.Extra {
		out.Extra[k] = v
	}
	for k, v := range local.Extra {
		out.Extra[k] = v
	}
	return out
}
