package voice

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
)

// builtinPresets is the built-in preset document compiled into the binary.
//
//go:embed presets.json
var builtinPresets []byte

// DefaultVoice is the preset id used when the caller names no voice and the
// settings file does not override it.
const DefaultVoice = "classic_robot"

// LoadDefault builds a Registry from the embedded built-in presets, merged
// with the user preset file at userPath when it exists. A missing user file
// is not an error; an unreadable or malformed one is.
func LoadDefault(userPath string, opts ...LoadOption) (*Registry, error) {
	var user io.Reader
	if userPath != "" {
		f, err := os.Open(userPath)
		if err == nil {
			defer f.Close()
			user = f
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("voice: open user presets %q: %w", userPath, err)
		}
	}
	return Load(bytes.NewReader(builtinPresets), user, opts...)
}
