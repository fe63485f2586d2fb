// ABOUTME: Tests for WAV file reader
// ABOUTME: Tests header validation, sample conversion and wrap-around reads
package wave

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
)

// buildWAV assembles a canonical 44-byte header followed by data
func buildWAV(channels, sampleRate, bits int, data []byte) []byte {
	buf := make([]byte, HeaderSize, HeaderSize+len(data))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(data)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*channels*bits/8))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bits))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(data)))
	return append(buf, data...)
}

// stereoRamp16 returns frames of 16-bit stereo data where left=i and right=-i
func stereoRamp16(frames int) []byte {
	data := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(data[i*4:], uint16(int16(i)))
		binary.LittleEndian.PutUint16(data[i*4+2:], uint16(int16(-i)))
	}
	return data
}

// countingFS records how many files are open
type countingFS struct {
	fstest.MapFS
	open int
}

type countedFile struct {
	fs.File
	owner *countingFS
}

func (f *countedFile) Read(p []byte) (int, error) { return f.File.Read(p) }

func (f *countedFile) Seek(offset int64, whence int) (int64, error) {
	return f.File.(interface {
		Seek(int64, int) (int64, error)
	}).Seek(offset, whence)
}

func (f *countedFile) Close() error {
	f.owner.open--
	return f.File.Close()
}

func (c *countingFS) Open(name string) (fs.File, error) {
	f, err := c.MapFS.Open(name)
	if err != nil {
		return nil, err
	}
	c.open++
	return &countedFile{File: f, owner: c}, nil
}

func TestOpenValidStereo16(t *testing.T) {
	fsys := fstest.MapFS{
		"song.wav": {Data: buildWAV(2, 22050, 16, stereoRamp16(10))},
	}

	f, err := Open(fsys, "song.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	if f.Channels != 2 || f.SampleRate != 22050 || f.BitsPerSample != 16 {
		t.Errorf("unexpected header: %+v", f.Header)
	}
	if f.DataSize != 40 {
		t.Errorf("expected data size 40, got %d", f.DataSize)
	}
	if f.DataOffset != HeaderSize {
		t.Errorf("expected data offset %d, got %d", HeaderSize, f.DataOffset)
	}
	if f.Frames() != 10 {
		t.Errorf("expected 10 frames, got %d", f.Frames())
	}
}

func TestReadReturnsAllFramesThenWraps(t *testing.T) {
	const frames = 100
	data := stereoRamp16(frames)
	fsys := fstest.MapFS{
		"song.wav": {Data: buildWAV(2, 44100, 16, data)},
	}

	f, err := Open(fsys, "song.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	// D/4 stereo frames before the wrap
	dst := make([]uint16, len(data)/4*2)
	if err := f.Read(dst); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	for i := 0; i < frames; i++ {
		wantL := uint16(int16(i)) ^ 0x8000
		wantR := uint16(int16(-i)) ^ 0x8000
		if dst[i*2] != wantL || dst[i*2+1] != wantR {
			t.Fatalf("frame %d: expected (%#x,%#x), got (%#x,%#x)", i, wantL, wantR, dst[i*2], dst[i*2+1])
		}
	}
	if f.Position() != 0 {
		t.Errorf("expected cursor to wrap to 0, got %d", f.Position())
	}

	// The next read starts again at the first frame
	next := make([]uint16, 4)
	if err := f.Read(next); err != nil {
		t.Fatalf("read after wrap failed: %v", err)
	}
	if next[0] != dst[0] || next[1] != dst[1] || next[2] != dst[2] || next[3] != dst[3] {
		t.Errorf("expected wrap to restart data, got %v", next)
	}
}

func TestReadRejectsPartialFrames(t *testing.T) {
	fsys := fstest.MapFS{
		"song.wav": {Data: buildWAV(2, 44100, 16, stereoRamp16(10))},
	}

	f, err := Open(fsys, "song.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	if err := f.Read(make([]uint16, 3)); err == nil {
		t.Fatal("expected error for a read ending mid-frame")
	}
	if f.Position() != 0 {
		t.Errorf("rejected read moved the cursor to %d", f.Position())
	}

	// The file stays usable for whole-frame reads
	dst := make([]uint16, 2)
	if err := f.Read(dst); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if dst[0] != 0x8000 || dst[1] != 0x8000 {
		t.Errorf("expected first frame at mid scale, got %#x %#x", dst[0], dst[1])
	}
}

func TestReadSpanningWrap(t *testing.T) {
	fsys := fstest.MapFS{
		"short.wav": {Data: buildWAV(2, 8000, 16, stereoRamp16(3))},
	}

	f, err := Open(fsys, "short.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	// 7 frames from a 3-frame file: 0 1 2 0 1 2 0
	dst := make([]uint16, 14)
	if err := f.Read(dst); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	for i := 0; i < 7; i++ {
		want := uint16(int16(i%3)) ^ 0x8000
		if dst[i*2] != want {
			t.Errorf("frame %d: expected left %#x, got %#x", i, want, dst[i*2])
		}
	}
}

func TestReadMono8Bit(t *testing.T) {
	fsys := fstest.MapFS{
		"mono.wav": {Data: buildWAV(1, 11025, 8, []byte{0x00, 0x80, 0xFF})},
	}

	f, err := Open(fsys, "mono.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	dst := make([]uint16, 3)
	if err := f.Read(dst); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	expected := []uint16{0x0000, 0x8000, 0xFF00}
	for i := range expected {
		if dst[i] != expected[i] {
			t.Errorf("sample %d: expected %#x, got %#x", i, expected[i], dst[i])
		}
	}
}

func TestOpenSkipsListChunk(t *testing.T) {
	data := stereoRamp16(4)
	wav := buildWAV(2, 16000, 16, data)

	// Insert a 5-byte LIST chunk (padded to 6) between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 5, 0, 0, 0, 'a', 'b', 'c', 'd', 'e', 0}
	withList := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)

	fsys := fstest.MapFS{"list.wav": {Data: withList}}

	f, err := Open(fsys, "list.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	if f.DataOffset != HeaderSize+int64(len(list)) {
		t.Errorf("expected data offset %d, got %d", HeaderSize+len(list), f.DataOffset)
	}

	dst := make([]uint16, 8)
	if err := f.Read(dst); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if dst[2] != uint16(int16(1))^0x8000 {
		t.Errorf("unexpected second frame: %#x", dst[2])
	}
}

func TestOpenErrors(t *testing.T) {
	valid := buildWAV(2, 22050, 16, stereoRamp16(4))

	patch := func(offset int, b ...byte) []byte {
		out := append([]byte{}, valid...)
		copy(out[offset:], b)
		return out
	}

	tests := []struct {
		name     string
		data     []byte
		expected error
	}{
		{"bad riff", patch(0, 'R', 'I', 'F', 'X'), ErrBadRIFF},
		{"short file", valid[:6], ErrBadRIFF},
		{"bad wave tag", patch(8, 'A', 'V', 'I', ' '), ErrBadWaveTag},
		{"non pcm", patch(20, 3, 0), ErrUnsupportedFormat},
		{"bad fmt size", patch(16, 18), ErrUnsupportedFormat},
		{"three channels", patch(22, 3, 0), ErrUnsupportedChannelCount},
		{"zero channels", patch(22, 0, 0), ErrUnsupportedChannelCount},
		{"rate too high", buildWAV(2, 48000, 16, stereoRamp16(4)), ErrUnsupportedSampleRate},
		{"rate too low", buildWAV(2, 4000, 16, stereoRamp16(4)), ErrUnsupportedSampleRate},
		{"24 bit", patch(34, 24, 0), ErrUnsupportedBitDepth},
		{"no data", valid[:36], ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := &countingFS{MapFS: fstest.MapFS{"test.wav": {Data: tt.data}}}

			f, err := Open(fsys, "test.wav")
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
			if f != nil {
				t.Error("expected nil file on error")
			}
			if fsys.open != 0 {
				t.Errorf("expected no open files after failure, got %d", fsys.open)
			}
		})
	}
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(fstest.MapFS{}, "missing.wav")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadFailsOnTruncatedData(t *testing.T) {
	wav := buildWAV(2, 22050, 16, stereoRamp16(8))
	// Header claims 8 frames but only 2 are present
	truncated := wav[:HeaderSize+8]
	fsys := fstest.MapFS{"cut.wav": {Data: truncated}}

	f, err := Open(fsys, "cut.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	if err := f.Read(make([]uint16, 16)); err == nil {
		t.Error("expected error reading past end of storage")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fsys := &countingFS{MapFS: fstest.MapFS{"a.wav": {Data: buildWAV(1, 8000, 16, make([]byte, 8))}}}

	f, err := Open(fsys, "a.wav")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if fsys.open != 0 {
		t.Errorf("expected 0 open files, got %d", fsys.open)
	}
	if err := f.Read(make([]uint16, 2)); err == nil {
		t.Error("expected error reading a closed file")
	}
}

func TestHeaderDuration(t *testing.T) {
	h := Header{Channels: 2, SampleRate: 8000, BitsPerSample: 16, DataSize: 32000}

	if got := h.Duration(); got != 1.0 {
		t.Errorf("expected 1.0s, got %v", got)
	}
	if got := h.Frames(); got != 8000 {
		t.Errorf("expected 8000 frames, got %d", got)
	}
}
