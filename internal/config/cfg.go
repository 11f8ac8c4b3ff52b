package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	ReaderConfig struct {
		PageRunes       int `yaml:"page_runes" validate:"min=64"`
		FontSize        int `yaml:"font_size" validate:"min=1"`
		MinFontSize     int `yaml:"min_font_size" validate:"min=1"`
		MaxFontSize     int `yaml:"max_font_size" validate:"min=1"`
		LocationSpacing int `yaml:"location_spacing" validate:"min=16"`
	}

	StateConfig struct {
		Backend string `yaml:"backend" validate:"oneof=json sqlite"`
		Path    string `yaml:"path,omitempty" validate:"omitempty,filepath"`
	}

	Config struct {
		Version int           `yaml:"version" validate:"eq=1"`
		Reader  ReaderConfig  `yaml:"reader"`
		State   StateConfig   `yaml:"state"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// PageRunesFor returns page size for font size: text area is fixed, so rune
// capacity goes with the inverse square of the font size.
func (r *ReaderConfig) PageRunesFor(fontSize int) int {
	fontSize = min(max(fontSize, r.MinFontSize), r.MaxFontSize)
	if fontSize <= 0 {
		return r.PageRunes
	}
	scale := float64(r.FontSize) / float64(fontSize)
	return int(float64(r.PageRunes) * scale * scale)
}

// checkFontRange makes sure configured font size lies within its limits.
func checkFontRange(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	r := cfg.Reader
	if r.MinFontSize > r.MaxFontSize {
		sl.ReportError(r.MinFontSize, "MinFontSize", "min_font_size", "ltefield", "MaxFontSize")
	}
	if r.FontSize < r.MinFontSize || r.FontSize > r.MaxFontSize {
		sl.ReportError(r.FontSize, "FontSize", "font_size", "fontrange", "")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkFontRange)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
