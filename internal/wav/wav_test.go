package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// chunk is one RIFF sub-chunk for building fixtures.
type chunk struct {
	id   string
	size uint32 // declared size; body may be shorter
	body []byte
}

func riff(chunks ...chunk) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteString("WAVE")
	for _, c := range chunks {
		buf.WriteString(c.id)
		_ = binary.Write(&buf, binary.LittleEndian, c.size)
		buf.Write(c.body)
	}
	return buf.Bytes()
}

func fmtBody(code, channels uint16, rate uint32, bits uint16, extra int) []byte {
	var buf bytes.Buffer
	blockAlign := channels * bits / 8
	_ = binary.Write(&buf, binary.LittleEndian, code)
	_ = binary.Write(&buf, binary.LittleEndian, channels)
	_ = binary.Write(&buf, binary.LittleEndian, rate)
	_ = binary.Write(&buf, binary.LittleEndian, rate*uint32(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(&buf, binary.LittleEndian, bits)
	buf.Write(make([]byte, extra))
	return buf.Bytes()
}

func fmtChunk(code, channels uint16, rate uint32, bits uint16) chunk {
	b := fmtBody(code, channels, rate, bits, 0)
	return chunk{"fmt ", uint32(len(b)), b}
}

func dataChunk(b []byte) chunk {
	return chunk{"data", uint32(len(b)), b}
}

func int16s(v ...int16) []byte {
	out := make([]byte, len(v)*2)
	for i, s := range v {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func float32s(v ...float32) []byte {
	out := make([]byte, len(v)*4)
	for i, s := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func TestDecodeMono16(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantPCM  []byte
		wantRate uint32
	}{
		{
			name:     "pcm16 mono",
			input:    riff(fmtChunk(FormatPCM, 1, 24000, 16), dataChunk(int16s(1, -2, 300))),
			wantPCM:  int16s(1, -2, 300),
			wantRate: 24000,
		},
		{
			name:     "pcm16 stereo integer average",
			input:    riff(fmtChunk(FormatPCM, 2, 22050, 16), dataChunk(int16s(100, 201, -3, 0))),
			wantPCM:  int16s(150, -1),
			wantRate: 22050,
		},
		{
			name:     "float32 stereo cancels to zero",
			input:    riff(fmtChunk(FormatIEEEFloat, 2, 44100, 32), dataChunk(float32s(1, -1, 1, -1))),
			wantPCM:  int16s(0, 0),
			wantRate: 44100,
		},
		{
			name:     "float32 clamped",
			input:    riff(fmtChunk(FormatIEEEFloat, 1, 16000, 32), dataChunk(float32s(2.5, -3, 0.5))),
			wantPCM:  int16s(32767, -32767, 16383),
			wantRate: 16000,
		},
		{
			name: "extensible float with extended fmt chunk",
			input: func() []byte {
				b := fmtBody(FormatExtensible, 1, 24000, 32, 24)
				return riff(chunk{"fmt ", uint32(len(b)), b}, dataChunk(float32s(-1)))
			}(),
			wantPCM:  int16s(-32767),
			wantRate: 24000,
		},
		{
			name:     "extensible pcm16",
			input:    riff(fmtChunk(FormatExtensible, 1, 8000, 16), dataChunk(int16s(7))),
			wantPCM:  int16s(7),
			wantRate: 8000,
		},
		{
			name: "unknown chunks skipped with odd padding",
			input: riff(
				chunk{"LIST", 3, []byte{1, 2, 3, 0}},
				fmtChunk(FormatPCM, 1, 24000, 16),
				dataChunk(int16s(5, 6)),
			),
			wantPCM:  int16s(5, 6),
			wantRate: 24000,
		},
		{
			name:     "oversized data chunk clamped",
			input:    riff(fmtChunk(FormatPCM, 1, 24000, 16), chunk{"data", 0xFFFFFFFF, int16s(9, 10)}),
			wantPCM:  int16s(9, 10),
			wantRate: 24000,
		},
		{
			name:     "trailing partial frame dropped",
			input:    riff(fmtChunk(FormatPCM, 2, 24000, 16), dataChunk(append(int16s(2, 4), 1, 2))),
			wantPCM:  int16s(3),
			wantRate: 24000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm, rate, err := DecodeMono16(tt.input)
			if err != nil {
				t.Fatalf("DecodeMono16 failed: %v", err)
			}
			if rate != tt.wantRate {
				t.Errorf("sample rate = %d, want %d", rate, tt.wantRate)
			}
			if !bytes.Equal(pcm, tt.wantPCM) {
				t.Errorf("pcm = %v, want %v", pcm, tt.wantPCM)
			}
		})
	}
}

func TestDecodeMono16_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"too short", []byte("RIFF"), ErrTooShort},
		{"bad magic", append([]byte("RIFX\x00\x00\x00\x00WAVE"), 0), ErrNotRIFF},
		{"missing fmt", riff(dataChunk(int16s(1))), ErrMissingFmt},
		{"missing data", riff(fmtChunk(FormatPCM, 1, 24000, 16)), ErrMissingData},
		{"fmt too small", riff(chunk{"fmt ", 8, make([]byte, 8)}, dataChunk(int16s(1))), ErrFmtTooSmall},
		{"zero channels", riff(fmtChunk(FormatPCM, 0, 24000, 16), dataChunk(int16s(1))), ErrZeroChannels},
		{"empty data", riff(fmtChunk(FormatPCM, 1, 24000, 16), dataChunk(nil)), ErrDataTooSmall},
		{"data shorter than frame", riff(fmtChunk(FormatIEEEFloat, 2, 24000, 32), dataChunk(float32s(1))), ErrDataTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeMono16(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeMono16_UnsupportedFormat(t *testing.T) {
	input := riff(fmtChunk(FormatPCM, 1, 24000, 24), dataChunk(make([]byte, 6)))
	_, _, err := DecodeMono16(input)

	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if ufe.Format != FormatPCM || ufe.Bits != 24 {
		t.Errorf("unexpected pair: %+v", ufe)
	}
	if got, want := err.Error(), "unsupported WAV format: format=1 bits=24"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestEncode_Header(t *testing.T) {
	pcm := int16s(1, 2, 3)
	b := Encode(pcm, 24000)

	if len(b) != HeaderSize+len(pcm) {
		t.Fatalf("length = %d, want %d", len(b), HeaderSize+len(pcm))
	}
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", binary.LittleEndian.Uint32(b[4:8]), 36 + uint32(len(pcm))},
		{"fmt size", binary.LittleEndian.Uint32(b[16:20]), 16},
		{"format", uint32(binary.LittleEndian.Uint16(b[20:22])), 1},
		{"channels", uint32(binary.LittleEndian.Uint16(b[22:24])), 1},
		{"rate", binary.LittleEndian.Uint32(b[24:28]), 24000},
		{"byte rate", binary.LittleEndian.Uint32(b[28:32]), 48000},
		{"block align", uint32(binary.LittleEndian.Uint16(b[32:34])), 2},
		{"bits", uint32(binary.LittleEndian.Uint16(b[34:36])), 16},
		{"data size", binary.LittleEndian.Uint32(b[40:44]), uint32(len(pcm))},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		t.Error("magic strings not in canonical positions")
	}
}

func TestParseChunks_HugeDeclaredSize(t *testing.T) {
	pcm := int16s(5, -5, 7)
	tests := []struct {
		name string
		size uint32
	}{
		{"max uint32", 0xFFFFFFFF},
		{"high bit set", 0x80000000},
		{"odd past end", 0x7FFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := riff(fmtChunk(FormatPCM, 1, 16000, 16), chunk{"data", tt.size, pcm})
			f, data, err := ParseChunks(in)
			if err != nil {
				t.Fatal(err)
			}
			if f.SampleRate != 16000 || !bytes.Equal(data, pcm) {
				t.Errorf("got rate %d data %v, want 16000 %v", f.SampleRate, data, pcm)
			}
			got, rate, err := DecodeMono16(in)
			if err != nil {
				t.Fatal(err)
			}
			if rate != 16000 || !bytes.Equal(got, pcm) {
				t.Errorf("decoded %v@%d, want %v@16000", got, rate, pcm)
			}
		})
	}
}

func TestEncode_Empty(t *testing.T) {
	b := Encode(nil, 22050)
	if len(b) != HeaderSize {
		t.Fatalf("length = %d, want %d", len(b), HeaderSize)
	}
	if got := binary.LittleEndian.Uint32(b[4:8]); got != 36 {
		t.Errorf("riff size = %d, want 36", got)
	}
	if got := binary.LittleEndian.Uint32(b[40:44]); got != 0 {
		t.Errorf("data size = %d, want 0", got)
	}
}

func TestEncodeTo_File(t *testing.T) {
	pcm := int16s(100, -100, 200, -200)
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeTo(f, pcm, 24000); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, Encode(pcm, 24000)) {
		t.Errorf("file and in-memory encodings differ")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	sources := [][]byte{
		riff(fmtChunk(FormatPCM, 1, 24000, 16), dataChunk(int16s(0, 1, -1, 32767, -32768))),
		riff(fmtChunk(FormatPCM, 3, 48000, 16), dataChunk(int16s(10, 20, 30, -10, -20, -30))),
		riff(fmtChunk(FormatIEEEFloat, 2, 44100, 32), dataChunk(float32s(0.25, 0.75, -0.5, 0.1))),
	}
	for i, src := range sources {
		pcm, rate, err := DecodeMono16(src)
		if err != nil {
			t.Fatalf("source %d: decode failed: %v", i, err)
		}
		again, rate2, err := DecodeMono16(Encode(pcm, rate))
		if err != nil {
			t.Fatalf("source %d: re-decode failed: %v", i, err)
		}
		if rate2 != rate || !bytes.Equal(again, pcm) {
			t.Errorf("source %d: round trip mismatch: %v@%d vs %v@%d", i, again, rate2, pcm, rate)
		}
	}
}

func TestDurationMS(t *testing.T) {
	if got := DurationMS(48000, 24000); got != 1000 {
		t.Errorf("DurationMS = %v, want 1000", got)
	}
	if got := DurationMS(100, 0); got != 0 {
		t.Errorf("DurationMS with zero rate = %v, want 0", got)
	}
}

func TestResample(t *testing.T) {
	pcm := int16s(0, 100, 200, 300)

	if got := Resample(pcm, 24000, 24000); !bytes.Equal(got, pcm) {
		t.Error("same-rate resample changed data")
	}

	up := Resample(pcm, 1000, 2000)
	if want := int16s(0, 50, 100, 150, 200, 250, 300, 300); !bytes.Equal(up, want) {
		t.Errorf("upsample = %v, want %v", up, want)
	}

	down := Resample(pcm, 2000, 1000)
	if want := int16s(0, 200); !bytes.Equal(down, want) {
		t.Errorf("downsample = %v, want %v", down, want)
	}
}
