package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// FileTranscriber reads a transcript saved earlier instead of running a
// recogniser. The audio path is ignored.
type FileTranscriber struct {
	Path string
}

func (f FileTranscriber) Transcribe(ctx context.Context, _ string) (model.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return model.Transcript{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("failed to read transcript: %w", err)
	}
	var raw rawTranscript
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.Transcript{}, fmt.Errorf("failed to parse transcript %s: %w", f.Path, err)
	}
	return raw.normalize(), nil
}
