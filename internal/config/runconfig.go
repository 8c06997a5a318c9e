package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"GazetteScanner/internal/domain"
)

// DecodeRunConfig parses a RunConfig document. Unknown keys and invalid
// values are reported as *domain.ConfigError.
func DecodeRunConfig(raw []byte) (domain.RunConfig, error) {
	var cfg domain.RunConfig

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.RunConfig{}, &domain.ConfigError{Reason: "run config is empty"}
		}
		return domain.RunConfig{}, &domain.ConfigError{Reason: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		return domain.RunConfig{}, err
	}
	return cfg, nil
}

// EncodeRunConfig renders cfg as YAML.
func EncodeRunConfig(cfg domain.RunConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode run config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode run config: %w", err)
	}
	return buf.Bytes(), nil
}
