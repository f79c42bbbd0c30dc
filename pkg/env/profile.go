// Package env provides node identity and configuration profiles.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// ProfileEnv names the environment variable pointing to a profile.
const ProfileEnv = "OMNI_PROFILE"

// ParseProfile parses a YAML map of flag name to value.
func ParseProfile(data []byte) (map[string]string, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(raw))
	for name, val := range raw {
		if val == nil {
			continue
		}
		values[name] = fmt.Sprint(val)
	}
	return values, nil
}

// Apply sets the flags in values which were not set explicitly.
func Apply(fs *flag.FlagSet, values map[string]string) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	for name, val := range values {
		if explicit[name] {
			continue
		}
		if fs.Lookup(name) == nil {
			return fmt.Errorf("profile: unknown flag %q", name)
		}
		if err := fs.Set(name, val); err != nil {
			return fmt.Errorf("profile: %s: %v", name, err)
		}
	}
	return nil
}

// ApplyFile loads the YAML profile at path and applies it to fs.
func ApplyFile(fs *flag.FlagSet, path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	values, err := ParseProfile(data)
	if err != nil {
		return fmt.Errorf("profile %s: %v", path, err)
	}
	return Apply(fs, values)
}

var profilePath = os.Getenv(ProfileEnv)

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&profilePath, "profile", profilePath, "YAML profile of flag values.")
}

// ParseFlags parses the command line and applies the profile if set.
func ParseFlags() error {
	flag.Parse()
	if profilePath == "" {
		return nil
	}
	return ApplyFile(flag.CommandLine, profilePath)
}
