package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvOllamaHost = "OLLAMA_HOST"
	EnvASRURL     = "ASSESS_ASR_URL"
	EnvASRAPIKey  = "ASSESS_ASR_API_KEY"
)

// LoadEnv loads .env from the working directory and from the config
// directory. Variables already set win. Missing files are skipped.
func LoadEnv() error {
	for _, path := range []string{".env", filepath.Join(XDGConfigHome(), appName, ".env")} {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overrides endpoint settings from the environment.
func (c *FileConfig) ApplyEnv() {
	if v := os.Getenv(EnvOllamaHost); v != "" {
		c.Grader.Host = &v
	}
	if v := os.Getenv(EnvASRURL); v != "" {
		c.ASR.URL = &v
	}
	if v := os.Getenv(EnvASRAPIKey); v != "" {
		c.ASR.APIKey = &v
	}
}
