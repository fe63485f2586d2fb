// ABOUTME: WAV file reader for streaming playback
// ABOUTME: Validates RIFF/WAVE PCM headers and reads samples with wrap-around at end of data
package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
)

const (
	// HeaderSize is the size of the canonical RIFF/WAVE PCM header
	HeaderSize = 44

	// FormatPCM is the only supported audio format code
	FormatPCM = 1

	// MinSampleRate and MaxSampleRate bound the accepted sample rates
	MinSampleRate = 8000
	MaxSampleRate = 44100

	// cacheSize is the size of the read cache in bytes
	cacheSize = 4096
)

var (
	ErrNotFound                = errors.New("wave: file not found")
	ErrBadRIFF                 = errors.New("wave: missing RIFF tag")
	ErrBadWaveTag              = errors.New("wave: missing WAVE tag")
	ErrUnsupportedFormat       = errors.New("wave: unsupported format")
	ErrUnsupportedChannelCount = errors.New("wave: unsupported channel count")
	ErrUnsupportedSampleRate   = errors.New("wave: unsupported sample rate")
	ErrUnsupportedBitDepth     = errors.New("wave: unsupported bit depth")
)

// Header holds the validated fields of a WAV header
type Header struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataSize      uint32 // Bytes of sample data
	DataOffset    int64  // Offset of the first sample byte in the file
}

// FrameSize returns the number of bytes in one frame (all channels)
func (h Header) FrameSize() int {
	return h.Channels * h.BitsPerSample / 8
}

// Frames returns the number of frames in the data chunk
func (h Header) Frames() int {
	return int(h.DataSize) / h.FrameSize()
}

// Duration returns the playing time in seconds
func (h Header) Duration() float64 {
	return float64(h.DataSize) / float64(h.FrameSize()*h.SampleRate)
}

// Format returns the stream format described by the header
func (h Header) Format() audio.Format {
	return audio.Format{
		SampleRate: h.SampleRate,
		Channels:   h.Channels,
		BitDepth:   h.BitsPerSample,
	}
}

// File is an open, validated WAV file
type File struct {
	Header
	name   string
	file   io.ReadSeekCloser
	pos    uint32 // Read position relative to DataOffset
	cache  []byte
	closed bool
}

// Open opens and validates a WAV file from fsys.
// On error nothing is left open.
func Open(fsys fs.FS, name string) (*File, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	rsc, ok := f.(io.ReadSeekCloser)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%s: file does not support seeking", name)
	}

	header, err := ReadHeader(rsc)
	if err != nil {
		rsc.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Printf("Opened WAV %s: %d Hz, %d channels, %d-bit, %d frames (%.2fs)",
		name, header.SampleRate, header.Channels, header.BitsPerSample, header.Frames(), header.Duration())

	return &File{
		Header: header,
		name:   name,
		file:   rsc,
		cache:  make([]byte, cacheSize-cacheSize%header.FrameSize()),
	}, nil
}

// ReadHeader parses and validates the RIFF/WAVE header, leaving r positioned at the start of data
func ReadHeader(r io.Reader) (Header, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Header{}, fmt.Errorf("%w: short header", ErrBadRIFF)
	}
	if string(riff[0:4]) != "RIFF" {
		return Header{}, fmt.Errorf("%w: got %q", ErrBadRIFF, riff[0:4])
	}
	if string(riff[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: got %q", ErrBadWaveTag, riff[8:12])
	}

	var fmtChunk [24]byte
	if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
		return Header{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedFormat)
	}
	if string(fmtChunk[0:4]) != "fmt " {
		return Header{}, fmt.Errorf("%w: expected fmt chunk, got %q", ErrUnsupportedFormat, fmtChunk[0:4])
	}
	if size := binary.LittleEndian.Uint32(fmtChunk[4:8]); size != 16 {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrUnsupportedFormat, size)
	}
	if format := binary.LittleEndian.Uint16(fmtChunk[8:10]); format != FormatPCM {
		return Header{}, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, format)
	}

	h := Header{
		Channels:      int(binary.LittleEndian.Uint16(fmtChunk[10:12])),
		SampleRate:    int(binary.LittleEndian.Uint32(fmtChunk[12:16])),
		BitsPerSample: int(binary.LittleEndian.Uint16(fmtChunk[22:24])),
	}

	if h.Channels < 1 || h.Channels > 2 {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedChannelCount, h.Channels)
	}
	if h.SampleRate < MinSampleRate || h.SampleRate > MaxSampleRate {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedSampleRate, h.SampleRate)
	}
	if _, err := audio.BytesPerSample(h.BitsPerSample); err != nil {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, h.BitsPerSample)
	}

	offset := int64(12 + 24)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Header{}, fmt.Errorf("%w: no data chunk", ErrUnsupportedFormat)
		}
		offset += 8
		size := binary.LittleEndian.Uint32(chunk[4:8])

		if string(chunk[0:4]) == "data" {
			h.DataSize = size - size%uint32(h.FrameSize())
			h.DataOffset = offset
			break
		}

		// Skip LIST and other informational chunks, which are word aligned
		skip := int64(size) + int64(size&1)
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return Header{}, fmt.Errorf("%w: truncated %q chunk", ErrUnsupportedFormat, chunk[0:4])
		}
		offset += skip
	}

	if h.DataSize == 0 {
		return Header{}, fmt.Errorf("%w: empty data chunk", ErrUnsupportedFormat)
	}

	return h, nil
}

// Name returns the name the file was opened with
func (f *File) Name() string {
	return f.name
}

// Position returns the read cursor in bytes from the start of data
func (f *File) Position() uint32 {
	return f.pos
}

// Read fills dst with interleaved samples in the file's channel layout.
// len(dst) must be a whole number of frames. When the end of data is reached it
// wraps to the start, so dst is always filled unless the underlying storage fails.
func (f *File) Read(dst []uint16) error {
	if f.closed {
		return fmt.Errorf("%s: read after close", f.name)
	}
	if len(dst)%f.Channels != 0 {
		return fmt.Errorf("%s: %d samples is not a whole number of %d-channel frames", f.name, len(dst), f.Channels)
	}

	sampleSize := f.BitsPerSample / 8
	frameSize := f.FrameSize()
	written := 0

	for written < len(dst) {
		// Smallest of remaining destination, cache size and data before wrap
		framesLeft := (len(dst) - written) / f.Channels
		framesToRead := len(f.cache) / frameSize
		if framesLeft < framesToRead {
			framesToRead = framesLeft
		}
		if framesToWrap := int(f.DataSize-f.pos) / frameSize; framesToWrap < framesToRead {
			framesToRead = framesToWrap
		}

		buf := f.cache[:framesToRead*frameSize]
		if _, err := io.ReadFull(f.file, buf); err != nil {
			return fmt.Errorf("%s: read at data offset %d: %w", f.name, f.pos, err)
		}

		n, err := audio.DecodePCM(dst[written:], buf, f.BitsPerSample)
		if err != nil {
			return err
		}
		written += n
		f.pos += uint32(n * sampleSize)

		if f.pos == f.DataSize {
			if err := f.Rewind(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Rewind moves the read cursor back to the first sample
func (f *File) Rewind() error {
	if _, err := f.file.Seek(f.DataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("%s: seek to data: %w", f.name, err)
	}
	f.pos = 0
	return nil
}

// Close closes the underlying file. It is safe to call more than once.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}
