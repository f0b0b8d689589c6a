// Package fixture reads recorded update cycles from YAML or JSON files.
//
// A fixture looks like:
//
//	name: login-screen
//	cycles:
//	  - pixel_ratio: 2
//	    nodes:
//	      - {id: 0, children: [1]}
//	      - {id: 1, label: Sign in, flags: [is_button], actions: [tap]}
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/a11ybridge/internal/dto"
)

// ErrEmpty is returned for fixtures without cycles.
var ErrEmpty = errors.New("fixture has no cycles")

// Fixture is a named sequence of update cycles.
type Fixture struct {
	Name   string      `json:"name" yaml:"name" mapstructure:"name"`
	Cycles []dto.Cycle `json:"cycles" yaml:"cycles" mapstructure:"cycles"`
}

// Load reads the fixture at path. The format follows the extension: .json is
// JSON, anything else YAML. An unnamed fixture is named after its file.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to read fixture: %w", err)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Fixture{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Parse decodes a fixture document. ext selects the format like Load does.
func Parse(data []byte, ext string) (Fixture, error) {
	raw := map[string]any{}
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return Fixture{}, fmt.Errorf("failed to parse fixture: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Fixture{}, fmt.Errorf("failed to parse fixture: %w", err)
		}
	}

	var f Fixture
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &f,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Fixture{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Fixture{}, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if len(f.Cycles) == 0 {
		return Fixture{}, ErrEmpty
	}

	// Convert once so bad names surface at load time.
	for i, c := range f.Cycles {
		if _, _, err := c.Updates(); err != nil {
			return Fixture{}, fmt.Errorf("cycle %d: %w", i, err)
		}
	}
	return f, nil
}
