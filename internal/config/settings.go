package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// LoadSettingsFile reads app settings from a TOML file. A missing file yields
// zero settings and no error; unknown keys are rejected.
//
//	development_projects = ["WEB", "API"]
//
//	[field_mappings.general]
//	parent_field = "customfield_10014"
//
//	[field_mappings.workflow]
//	flow_end_statuses = ["Done", "Closed"]
func LoadSettingsFile(path string) (model.AppSettings, error) {
	var s model.AppSettings
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		if os.IsNotExist(err) {
			return model.AppSettings{}, nil
		}
		return model.AppSettings{}, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return model.AppSettings{}, fmt.Errorf("settings file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := model.ValidateSettings(s.WithDefaults()); err != nil {
		return model.AppSettings{}, fmt.Errorf("settings file %s: %w", path, err)
	}
	return s, nil
}

// WriteSettingsFile encodes settings as TOML to path.
func WriteSettingsFile(path string, s model.AppSettings) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}
