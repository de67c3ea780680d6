package entity

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// TargetAll is the wire form of the AllDevices target.
const TargetAll = "all"

// ErrInvalidTarget is returned when a target device value is neither "all" nor a list of ids.
var ErrInvalidTarget = errors.New(`targetDevices must be "all" or a list of device ids`)

// TargetDevices scopes a session to either all of a user's devices or an explicit set.
// The zero value targets no device and is rejected by validation.
type TargetDevices struct {
	all bool
	ids []string
}

// AllDevices targets every device of the user.
func AllDevices() TargetDevices {
	return TargetDevices{all: true}
}

// SpecificDevices targets only the given device ids. Duplicates and blanks are dropped.
func SpecificDevices(ids ...string) TargetDevices {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || containsString(out, id) {
			continue
		}
		out = append(out, id)
	}

	return TargetDevices{ids: out}
}

// IsAll reports whether the target is AllDevices.
func (t TargetDevices) IsAll() bool {
	return t.all
}

// DeviceIDs returns the explicit device ids, or nil for AllDevices.
func (t TargetDevices) DeviceIDs() []string {
	if t.all {
		return nil
	}

	return append([]string(nil), t.ids...)
}

// IsEmpty reports whether the target selects no device at all.
func (t TargetDevices) IsEmpty() bool {
	return !t.all && len(t.ids) == 0
}

// Includes reports whether deviceID is targeted.
func (t TargetDevices) Includes(deviceID string) bool {
	if t.all {
		return true
	}

	return deviceID != "" && containsString(t.ids, deviceID)
}

// String renders the target for logs.
func (t TargetDevices) String() string {
	if t.all {
		return TargetAll
	}

	return strings.Join(t.ids, ",")
}

// MarshalJSON encodes AllDevices as "all" and SpecificDevices as an array of ids.
func (t TargetDevices) MarshalJSON() ([]byte, error) {
	if t.all {
		return json.Marshal(TargetAll)
	}
	ids := t.ids
	if ids == nil {
		ids = []string{}
	}

	return json.Marshal(ids)
}

// UnmarshalJSON accepts "all" or an array of device id strings.
func (t *TargetDevices) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = TargetDevices{}

		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.WithStack(err)
		}
		if !strings.EqualFold(strings.TrimSpace(s), TargetAll) {
			return ErrInvalidTarget
		}
		*t = AllDevices()

		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return ErrInvalidTarget
	}
	*t = SpecificDevices(ids...)

	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}

	return false
}

func (t TargetDevices) clone() TargetDevices {
	return TargetDevices{all: t.all, ids: append([]string(nil), t.ids...)}
}
