package snapshot

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Sidecar is human-readable metadata stored alongside an XDR-encoded
// snapshot body, so an archive can be inspected without decoding the
// binary payload.
type Sidecar struct {
	ID        string    `yaml:"id"`
	PageSize  int       `yaml:"page_size"`
	Size      int64     `yaml:"size"`
	CreatedAt time.Time `yaml:"created_at"`
}

// MarshalSidecar encodes s as YAML.
func MarshalSidecar(s Sidecar) ([]byte, error) {
	return yaml.Marshal(s)
}

// UnmarshalSidecar decodes YAML produced by MarshalSidecar.
func UnmarshalSidecar(data []byte) (Sidecar, error) {
	var s Sidecar
	err := yaml.Unmarshal(data, &s)
	return s, err
}
