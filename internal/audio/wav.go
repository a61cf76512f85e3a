// Package audio holds the acoustic front-end: PCM WAV files, the intensity
// contour, ffmpeg conversion and external recorder/player processes.
package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrNotWAV            = errors.New("not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("unsupported WAV encoding")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Format describes interleaved little-endian PCM.
type Format struct {
	SampleRate  int `json:"sample_rate"`
	Channels    int `json:"channels"`
	SampleWidth int `json:"sample_width"` // bytes per sample
}

// DefaultFormat is 16 kHz mono 16-bit, what the recognisers expect.
func DefaultFormat() Format {
	return Format{SampleRate: 16000, Channels: 1, SampleWidth: 2}
}

// OrDefault replaces unset or invalid fields with the defaults.
func (f Format) OrDefault() Format {
	d := DefaultFormat()
	if f.SampleRate <= 0 {
		f.SampleRate = d.SampleRate
	}
	if f.Channels <= 0 {
		f.Channels = d.Channels
	}
	if f.SampleWidth < 1 || f.SampleWidth > 4 {
		f.SampleWidth = d.SampleWidth
	}
	return f
}

// BlockAlign is the size of one frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.SampleWidth
}

// Seconds returns the playback length of n bytes of PCM.
func (f Format) Seconds(n int) float64 {
	f = f.OrDefault()
	return float64(n/f.BlockAlign()) / float64(f.SampleRate)
}

// WriteWAV writes a canonical 44-byte header followed by pcm.
func WriteWAV(w io.Writer, pcm []byte, f Format) error {
	f = f.OrDefault()
	dataSize := len(pcm)
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(formatPCM),
		uint16(f.Channels),
		uint32(f.SampleRate),
		uint32(f.SampleRate * f.BlockAlign()),
		uint16(f.BlockAlign()),
		uint16(f.SampleWidth * 8),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(dataSize),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	_, err := w.Write(pcm)
	return err
}

// WriteWAVFile writes pcm to path. A partial file is removed on failure.
func WriteWAVFile(path string, pcm []byte, f Format) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	bw := bufio.NewWriter(file)
	if err = WriteWAV(bw, pcm, f); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	return bw.Flush()
}

// ReadWAV parses a PCM WAV stream and returns its format and sample data.
// Chunks other than "fmt " and "data" are skipped.
func ReadWAV(r io.Reader) (Format, []byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Format{}, nil, err
	}
	if len(raw) < 12 || !bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		return Format{}, nil, ErrNotWAV
	}

	var (
		f       Format
		haveFmt bool
		data    []byte
		pos     = 12
	)
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if size < 0 || end > len(raw) {
			end = len(raw)
		}
		switch id {
		case "fmt ":
			if end-body < 16 {
				return Format{}, nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			tag := binary.LittleEndian.Uint16(raw[body:])
			if tag != formatPCM && tag != formatExtensible {
				return Format{}, nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, tag)
			}
			f.Channels = int(binary.LittleEndian.Uint16(raw[body+2:]))
			f.SampleRate = int(binary.LittleEndian.Uint32(raw[body+4:]))
			bits := int(binary.LittleEndian.Uint16(raw[body+14:]))
			f.SampleWidth = (bits + 7) / 8
			haveFmt = true
		case "data":
			data = raw[body:end]
		}
		// Chunks are word aligned.
		pos = end + (end-body)%2
		if data != nil && haveFmt {
			break
		}
	}
	if !haveFmt || data == nil {
		return Format{}, nil, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}
	if f.SampleWidth < 1 || f.SampleWidth > 4 || f.Channels < 1 || f.SampleRate < 1 {
		return Format{}, nil, fmt.Errorf("%w: %+v", ErrUnsupportedFormat, f)
	}
	whole := len(data) - len(data)%f.BlockAlign()
	return f, data[:whole], nil
}

func ReadWAVFile(path string) (Format, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return Format{}, nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			_ = cerr
		}
	}()
	return ReadWAV(bufio.NewReader(file))
}

// Samples decodes pcm into mono samples in [-1, 1], averaging channels.
func Samples(pcm []byte, f Format) []float64 {
	f = f.OrDefault()
	block := f.BlockAlign()
	n := len(pcm) / block
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for ch := 0; ch < f.Channels; ch++ {
			off := i*block + ch*f.SampleWidth
			sum += decodeSample(pcm[off:off+f.SampleWidth], f.SampleWidth)
		}
		out[i] = sum / float64(f.Channels)
	}
	return out
}

func decodeSample(b []byte, width int) float64 {
	switch width {
	case 1:
		// 8-bit WAV is unsigned.
		return (float64(b[0]) - 128) / 128
	case 2:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		return float64(v) / 8388608
	default:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	}
}
