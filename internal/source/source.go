// ABOUTME: Sample source abstraction for the staging buffers
// ABOUTME: Tagged variant over silence, noise, memory clip and streaming WAV backends
package source

import (
	"fmt"
	"log"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
	"github.com/pwmaudio/pwmaudio-go/internal/wave"
)

// NoiseSampleRate is the native rate of the synthetic sources
const NoiseSampleRate = 22050

// Kind identifies the backend behind a Source
type Kind int

const (
	KindSilence Kind = iota
	KindNoise
	KindMemory
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindSilence:
		return "silence"
	case KindNoise:
		return "noise"
	case KindMemory:
		return "memory"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source produces interleaved full-range samples through a single Pull entry point
type Source struct {
	kind   Kind
	noise  *NoiseGenerator
	memory *Circular
	file   *wave.File

	// File backend failure handling
	last []uint16
	err  error
}

// Silent returns a source that only produces silence
func Silent() *Source {
	return &Source{kind: KindSilence}
}

// NewNoise returns a synthetic noise source
func NewNoise(colour Colour, seed uint64) *Source {
	return &Source{kind: KindNoise, noise: NewNoiseGenerator(colour, seed)}
}

// NewMemory returns a source over a circular memory buffer
func NewMemory(c *Circular) *Source {
	return &Source{kind: KindMemory, memory: c}
}

// NewFile returns a streaming source over an open WAV file; the source owns the file
func NewFile(f *wave.File) *Source {
	last := make([]uint16, f.Channels)
	for i := range last {
		last[i] = audio.Silence
	}
	return &Source{kind: KindFile, file: f, last: last}
}

// Kind returns the backend kind
func (s *Source) Kind() Kind {
	return s.kind
}

// Name returns a short human-readable description
func (s *Source) Name() string {
	switch s.kind {
	case KindNoise:
		return s.noise.Colour().String() + " noise"
	case KindMemory:
		return "memory clip"
	case KindFile:
		return s.file.Name()
	default:
		return "silence"
	}
}

// Format returns the native format of the source
func (s *Source) Format() audio.Format {
	switch s.kind {
	case KindMemory:
		return s.memory.Format()
	case KindFile:
		return s.file.Format()
	default:
		return audio.Format{SampleRate: NoiseSampleRate, Channels: 1, BitDepth: 16}
	}
}

// Channels returns the number of interleaved channels produced by Pull
func (s *Source) Channels() int {
	return s.Format().Channels
}

// Pull fills dst completely; len(dst) must be a whole number of frames. It never
// fails: a storage error repeats the last good frame and is reported through Err.
func (s *Source) Pull(dst []uint16) {
	switch s.kind {
	case KindSilence:
		for i := range dst {
			dst[i] = audio.Silence
		}
	case KindNoise:
		for i := range dst {
			dst[i] = s.noise.Next()
		}
	case KindMemory:
		s.memory.Pull(dst)
	case KindFile:
		s.pullFile(dst)
	default:
		panic(fmt.Sprintf("source: unknown kind %d", s.kind))
	}
}

func (s *Source) pullFile(dst []uint16) {
	if s.err == nil {
		if err := s.file.Read(dst); err != nil {
			log.Printf("Read error on %s: %v", s.file.Name(), err)
			s.err = err
		} else {
			if n := len(dst) - len(s.last); n >= 0 {
				copy(s.last, dst[n:])
			}
			return
		}
	}

	// Hold the previous frame so a failed read does not click
	for i := range dst {
		dst[i] = s.last[i%len(s.last)]
	}
}

// Err returns the first storage error seen by Pull, if any
func (s *Source) Err() error {
	return s.err
}

// Close releases the backend's resources
func (s *Source) Close() error {
	if s.kind == KindFile && s.file != nil {
		return s.file.Close()
	}
	return nil
}
