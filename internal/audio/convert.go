package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpegBinary is the converter executable.
var FFmpegBinary = "ffmpeg"

// ConvertToWAV turns any input ffmpeg understands into 16 kHz mono WAV.
// WAV input is returned unchanged. cleanup removes the temporary file and
// is always safe to call.
func ConvertToWAV(ctx context.Context, src, tmpDir string) (path string, cleanup func(), err error) {
	cleanup = func() {}
	if strings.EqualFold(filepath.Ext(src), ".wav") {
		return src, cleanup, nil
	}
	if _, err := os.Stat(src); err != nil {
		return "", cleanup, err
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(tmpDir, base+".tmp.wav")

	// ffmpeg -y -i input -ac 1 -ar 16000 -f wav output
	cmd := exec.CommandContext(ctx, FFmpegBinary,
		"-y", "-loglevel", "error",
		"-i", src,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", cleanup, fmt.Errorf("ffmpeg is required for non-WAV input: %w", err)
		}
		_ = os.Remove(out)
		return "", cleanup, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, func() { _ = os.Remove(out) }, nil
}
