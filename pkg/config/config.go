package config

import (
	"errors"
	"fmt"
	"os"
	"path"

	"sigs.k8s.io/yaml"
)

const (
	defaultConfigDir  = "config"
	defaultConfigName = "settings.yaml"
)

// ErrConfigNotFound is returned by Load when the settings file is absent.
var ErrConfigNotFound = errors.New("config file not found")

var validate = newValidator()

// Load reads configDir/name as YAML into config and validates it.
func Load(configDir string, name string, config interface{}) error {
	if configDir == "" {
		configDir = defaultConfigDir
	}

	if name == "" {
		name = defaultConfigName
	}

	f, err := getConfigFile(configDir, name)
	if err != nil {
		return err
	}

	return loadFile(f, config)
}

func loadFile(f string, config interface{}) error {
	data, err := os.ReadFile(f)
	if err != nil {
		return err
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", f, err)
	}

	return validate.Struct(config)
}

func getConfigFile(configDir string, name string) (string, error) {
	path := path.Join(configDir, name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s does not exist", ErrConfigNotFound, path)
	}

	return path, nil
}
