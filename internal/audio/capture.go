package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// Recorder captures raw PCM from an external process writing to stdout.
type Recorder struct {
	Name       string
	Args       []string
	Format     Format
	ChunkBytes int
}

// DefaultRecorder records from the default input device: ffmpeg with
// avfoundation on macOS, arecord elsewhere.
func DefaultRecorder(f Format) Recorder {
	f = f.OrDefault()
	rate := strconv.Itoa(f.SampleRate)
	channels := strconv.Itoa(f.Channels)
	if runtime.GOOS == "darwin" {
		return Recorder{
			Name: FFmpegBinary,
			Args: []string{
				"-loglevel", "error", "-f", "avfoundation", "-i", ":0",
				"-ac", channels, "-ar", rate, "-f", "s16le", "-",
			},
			Format:     Format{SampleRate: f.SampleRate, Channels: f.Channels, SampleWidth: 2},
			ChunkBytes: chunkSize(f),
		}
	}
	return Recorder{
		Name:       "arecord",
		Args:       []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", channels},
		Format:     Format{SampleRate: f.SampleRate, Channels: f.Channels, SampleWidth: 2},
		ChunkBytes: chunkSize(f),
	}
}

// chunkSize is roughly 100 ms of audio.
func chunkSize(f Format) int {
	f = f.OrDefault()
	return f.SampleRate / 10 * f.BlockAlign()
}

// Capture is a running recorder. Chunks arrive in the order the process
// wrote them; the channel closes when the process exits.
type Capture struct {
	Chunks <-chan []byte
	Format Format

	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	err    error
}

// Start launches the recorder.
func (r Recorder) Start(ctx context.Context) (*Capture, error) {
	if r.Name == "" {
		return nil, errors.New("recorder command missing")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", r.Name, err)
	}

	chunks := make(chan []byte, 64)
	c := &Capture{Chunks: chunks, Format: r.Format.OrDefault(), cancel: cancel, done: make(chan struct{})}
	size := r.ChunkBytes
	if size <= 0 {
		size = chunkSize(c.Format)
	}
	go func() {
		defer close(c.done)
		readErr := ReadChunks(ctx, stdout, size, chunks)
		close(chunks)
		waitErr := cmd.Wait()
		if ctx.Err() != nil {
			// Stopped on purpose; the kill shows up as a wait error.
			return
		}
		if readErr != nil {
			c.err = readErr
			return
		}
		c.err = waitErr
	}()
	return c, nil
}

// Stop ends the recording and waits for the process to exit.
func (c *Capture) Stop() error {
	c.once.Do(c.cancel)
	<-c.done
	return c.err
}

// ReadChunks copies r into fixed-size chunks until EOF or until ctx is done.
// Each chunk is a fresh slice. A short final chunk is delivered as is.
func ReadChunks(ctx context.Context, r io.Reader, size int, out chan<- []byte) error {
	if size <= 0 {
		size = chunkSize(DefaultFormat())
	}
	for {
		buf := make([]byte, size)
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			select {
			case out <- buf[:n]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
