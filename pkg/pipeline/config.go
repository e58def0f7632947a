package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/waterfall/pkg/errors"
)

// ConfigFileName is the file looked up in the working directory when no
// explicit --config path is given.
const ConfigFileName = "waterfall.toml"

// FileConfig mirrors waterfall.toml. Pointer fields distinguish "absent"
// from an explicit zero so the file only overrides what it names.
//
//	columns      = 3
//	spacing      = 12
//	axis         = "vertical"
//	cross_extent = 960
//	debounce     = "50ms"
type FileConfig struct {
	Columns     *int     `toml:"columns"`
	Spacing     *float64 `toml:"spacing"`
	Axis        *string  `toml:"axis"`
	CrossExtent *float64 `toml:"cross_extent"`
	Debounce    *string  `toml:"debounce"`
}

// LoadConfigFile decodes the TOML file at path. Unknown keys are rejected
// so typos surface instead of silently falling back to defaults.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	if err := errors.ValidatePath(path); err != nil {
		return fc, err
	}
	md, err := toml.DecodeFile(path, &fc)
	if os.IsNotExist(err) {
		return fc, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return fc, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fc, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return fc, nil
}

// FindConfigFile returns the path of waterfall.toml in dir, or "" when
// there is none.
func FindConfigFile(dir string) string {
	path := filepath.Join(dir, ConfigFileName)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

// Apply copies every value present in the file onto o.
func (fc FileConfig) Apply(o *Options) error {
	if fc.Columns != nil {
		o.Columns = *fc.Columns
	}
	if fc.Spacing != nil {
		o.Spacing = *fc.Spacing
	}
	if fc.Axis != nil {
		o.Axis = *fc.Axis
	}
	if fc.CrossExtent != nil {
		o.CrossExtent = *fc.CrossExtent
	}
	if fc.Debounce != nil {
		d, err := time.ParseDuration(*fc.Debounce)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "debounce")
		}
		o.Debounce = d
	}
	return nil
}
