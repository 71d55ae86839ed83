package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads a config from the given file. ${VAR} references are replaced by the environment
// before the file is parsed.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a JSON5 config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Config{ConfigFilePath: originalPath}
	if err := json5.Unmarshal(buf, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal config")
	}
	if err := cfg.Validate(originalPath); err != nil {
		return nil, err
	}
	return &cfg, nil
}
