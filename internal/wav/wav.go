// Package wav reads RIFF/WAVE buffers produced by speech engines and writes the
// canonical mono 16-bit PCM container served to clients.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format codes found in the fmt chunk.
const (
	FormatPCM        uint16 = 1
	FormatIEEEFloat  uint16 = 3
	FormatExtensible uint16 = 0xFFFE
)

// HeaderSize is the length of the header written by Encode.
const HeaderSize = 44

var (
	// ErrTooShort is returned for buffers shorter than a RIFF header.
	ErrTooShort = errors.New("WAV data too short")
	// ErrNotRIFF is returned when the RIFF or WAVE magic is missing.
	ErrNotRIFF = errors.New("not a RIFF/WAVE file")
	// ErrFmtTooSmall is returned when the fmt chunk is shorter than 16 bytes.
	ErrFmtTooSmall = errors.New("WAV fmt chunk too small")
	// ErrMissingFmt is returned when no fmt chunk was found.
	ErrMissingFmt = errors.New("WAV missing fmt chunk")
	// ErrMissingData is returned when no data chunk was found.
	ErrMissingData = errors.New("WAV missing data chunk")
	// ErrZeroChannels is returned when the fmt chunk declares no channels.
	ErrZeroChannels = errors.New("WAV has zero channels")
	// ErrDataTooSmall is returned when the data chunk holds less than one frame.
	ErrDataTooSmall = errors.New("WAV data chunk too small")
)

// UnsupportedFormatError names a format code and bit depth pair the decoder
// cannot convert.
type UnsupportedFormatError struct {
	Format uint16
	Bits   uint16
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported WAV format: format=%d bits=%d", e.Format, e.Bits)
}

// Format describes the fmt chunk fields the decoder cares about.
type Format struct {
	Code          uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// ParseChunks walks the RIFF chunk list and returns the fmt description and
// the raw data chunk payload. A chunk whose declared size runs past the end of
// the buffer is clamped to the bytes actually present, since streaming writers
// often leave placeholder sizes behind.
func ParseChunks(b []byte) (Format, []byte, error) {
	var f Format
	if len(b) < 12 {
		return f, nil, ErrTooShort
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return f, nil, ErrNotRIFF
	}

	var (
		haveFmt bool
		data    []byte
		offset  = 12
	)
	for offset+8 <= len(b) {
		id := string(b[offset : offset+4])
		size := binary.LittleEndian.Uint32(b[offset+4 : offset+8])
		body := offset + 8
		end := len(b)
		if uint64(size) <= uint64(len(b)-body) {
			end = body + int(size)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return f, nil, ErrFmtTooSmall
			}
			c := b[body:end]
			f.Code = binary.LittleEndian.Uint16(c[0:2])
			f.Channels = binary.LittleEndian.Uint16(c[2:4])
			f.SampleRate = binary.LittleEndian.Uint32(c[4:8])
			f.BitsPerSample = binary.LittleEndian.Uint16(c[14:16])
			haveFmt = true
		case "data":
			data = b[body:end]
		}

		offset = end + int(size%2)
	}

	if !haveFmt {
		return f, nil, ErrMissingFmt
	}
	if data == nil {
		return f, nil, ErrMissingData
	}
	return f, data, nil
}

// DecodeMono16 converts a WAVE buffer into mono little-endian int16 PCM.
// 16-bit integer and 32-bit float input is accepted, plain or marked as
// WAVE_FORMAT_EXTENSIBLE. Multi-channel frames are averaged; float samples are
// clamped to [-1, 1] before scaling. A trailing partial frame is dropped.
func DecodeMono16(b []byte) ([]byte, uint32, error) {
	f, data, err := ParseChunks(b)
	if err != nil {
		return nil, 0, err
	}
	if f.Channels == 0 {
		return nil, 0, ErrZeroChannels
	}
	channels := int(f.Channels)

	switch {
	case (f.Code == FormatPCM || f.Code == FormatExtensible) && f.BitsPerSample == 16:
		frame := channels * 2
		if len(data) < frame {
			return nil, 0, ErrDataTooSmall
		}
		n := len(data) / frame
		out := make([]byte, n*2)
		for i := 0; i < n; i++ {
			var sum int32
			for ch := 0; ch < channels; ch++ {
				p := i*frame + ch*2
				sum += int32(int16(binary.LittleEndian.Uint16(data[p:])))
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/int32(channels))))
		}
		return out, f.SampleRate, nil

	case (f.Code == FormatIEEEFloat || f.Code == FormatExtensible) && f.BitsPerSample == 32:
		frame := channels * 4
		if len(data) < frame {
			return nil, 0, ErrDataTooSmall
		}
		n := len(data) / frame
		out := make([]byte, n*2)
		for i := 0; i < n; i++ {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				p := i*frame + ch*4
				sum += math.Float32frombits(binary.LittleEndian.Uint32(data[p:]))
			}
			mono := sum / float32(channels)
			if math.IsNaN(float64(mono)) {
				mono = 0
			} else if mono > 1 {
				mono = 1
			} else if mono < -1 {
				mono = -1
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(mono*32767)))
		}
		return out, f.SampleRate, nil
	}

	return nil, 0, &UnsupportedFormatError{Format: f.Code, Bits: f.BitsPerSample}
}

// EncodeTo writes mono 16-bit PCM to w as a canonical 44-byte-header WAVE
// file. A trailing odd byte is dropped.
func EncodeTo(w io.WriteSeeker, pcm []byte, sampleRate uint32) error {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(sampleRate)},
		Data:           make([]int, len(pcm)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := wav.NewEncoder(w, int(sampleRate), 16, 1, int(FormatPCM))
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// Encode returns mono 16-bit PCM wrapped in a canonical WAVE header.
func Encode(pcm []byte, sampleRate uint32) []byte {
	ws := &memFile{buf: make([]byte, 0, HeaderSize+len(pcm))}
	// memFile never fails a write or seek.
	_ = EncodeTo(ws, pcm, sampleRate)
	return ws.buf
}

// memFile is an in-memory io.WriteSeeker.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(m.pos) + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("seek: negative position %d", pos)
	}
	m.pos = int(pos)
	return pos, nil
}

// DurationMS returns the playback length of mono 16-bit PCM.
func DurationMS(pcmLen int, sampleRate uint32) float64 {
	if sampleRate == 0 {
		return 0
	}
	return float64(pcmLen) / 2 / float64(sampleRate) * 1000
}
