// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Assess  AssessConfig  `toml:"assess"`
	Grader  GraderConfig  `toml:"grader"`
	ASR     ASRConfig     `toml:"asr"`
	Pauses  PauseConfig   `toml:"pauses"`
	Trainer TrainerConfig `toml:"trainer"`
}

// AssessConfig maps assessment defaults.
type AssessConfig struct {
	LogDir       *string `toml:"log-dir"`
	TargetCEFR   *string `toml:"target-cefr"`
	Label        *string `toml:"label"`
	NoGrade      *bool   `toml:"no-grade"`
	FillersFile  *string `toml:"fillers-file"`
	CohesionFile *string `toml:"cohesion-file"`
}

// GraderConfig maps the examiner model settings.
type GraderConfig struct {
	Host  *string `toml:"host"`
	Model *string `toml:"model"`
}

// ASRConfig maps the speech recogniser settings.
type ASRConfig struct {
	URL      *string `toml:"url"`
	APIKey   *string `toml:"api-key"`
	Model    *string `toml:"model"`
	Language *string `toml:"language"`
}

// PauseConfig maps pause detection parameters.
type PauseConfig struct {
	ThresholdOffsetDB *float64 `toml:"threshold-offset-db"`
	MinPause          *float64 `toml:"min-pause"`
}

// TrainerConfig maps prompt trainer settings.
type TrainerConfig struct {
	Prompts    *string `toml:"prompts"`
	FocusWeak  *bool   `toml:"focus-weak"`
	WeakWindow *int    `toml:"weak-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
