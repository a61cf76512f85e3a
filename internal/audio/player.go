package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Player plays a file through an external program.
type Player struct {
	Name string
	Args []string
}

func DefaultPlayer() Player {
	if runtime.GOOS == "darwin" {
		return Player{Name: "afplay"}
	}
	return Player{Name: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}}
}

// Play blocks until playback finishes or ctx is cancelled.
func (p Player) Play(ctx context.Context, path string) error {
	args := append(append([]string{}, p.Args...), path)
	cmd := exec.CommandContext(ctx, p.Name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", p.Name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
