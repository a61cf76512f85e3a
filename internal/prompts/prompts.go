// Package prompts loads the catalog of timed speaking exercises.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

const (
	defaultResponseSeconds = 90
	defaultMaxPlaybacks    = 1
)

type catalog struct {
	Prompts []model.Prompt `json:"prompts" yaml:"prompts"`
}

// Load reads a JSON or YAML catalog. A missing file yields an empty catalog.
// Relative audio paths are resolved against the catalog's directory.
func Load(path string) ([]model.Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	items, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return normalize(items, base)
}

func decode(path string, data []byte) ([]model.Prompt, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var list []model.Prompt
		if err := yaml.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		var c catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c.Prompts, nil
	default:
		if strings.HasPrefix(trimmed, "[") {
			var list []model.Prompt
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var c catalog
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c.Prompts, nil
	}
}

func normalize(items []model.Prompt, base string) ([]model.Prompt, error) {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.Prompt, 0, len(items))
	for i, p := range items {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("prompt %d: missing id", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("prompt %q: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.ResponseSeconds <= 0 {
			p.ResponseSeconds = defaultResponseSeconds
		}
		if p.MaxPlaybacks < 0 {
			p.MaxPlaybacks = 0
		}
		if p.MaxPlaybacks == 0 && p.Audio != "" {
			p.MaxPlaybacks = defaultMaxPlaybacks
		}
		p.CEFRTarget = strings.ToUpper(strings.TrimSpace(p.CEFRTarget))
		if p.Title == "" {
			p.Title = p.ID
		}
		if p.Audio != "" {
			if filepath.IsAbs(p.Audio) {
				p.AudioPath = filepath.Clean(p.Audio)
			} else {
				p.AudioPath = filepath.Join(base, p.Audio)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Find returns the prompt with the given id.
func Find(items []model.Prompt, id string) (model.Prompt, bool) {
	for _, p := range items {
		if p.ID == id {
			return p, true
		}
	}
	return model.Prompt{}, false
}
