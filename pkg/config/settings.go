package config

// Settings hold command line defaults read from settings.yaml. Flags given on
// the command line take precedence.
type Settings struct {
	LogLevel         string `json:"logLevel,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty           bool   `json:"pretty,omitempty"`
	Strict           bool   `json:"strict,omitempty"`
	CompressionLevel int    `json:"compressionLevel,omitempty" validate:"min=-2,max=9"`
	Remote           string `json:"remote,omitempty"`
	RemoteDir        string `json:"remoteDir,omitempty" validate:"excluded_without=Remote"`
}

// LoadSettings reads settings.yaml from dir, or from "config" when dir is
// empty.
func LoadSettings(dir string) (*Settings, error) {
	var s Settings
	if err := Load(dir, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}
