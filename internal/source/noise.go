// ABOUTME: Coloured noise generator
// ABOUTME: Produces white, pink and brown noise one sample at a time
package source

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
)

// Colour selects the spectral shape of the noise
type Colour int

const (
	White Colour = iota
	Pink
	Brown
)

func (c Colour) String() string {
	switch c {
	case White:
		return "white"
	case Pink:
		return "pink"
	case Brown:
		return "brown"
	default:
		return fmt.Sprintf("colour(%d)", int(c))
	}
}

// ParseColour converts a colour name into a Colour
func ParseColour(name string) (Colour, error) {
	switch name {
	case "white":
		return White, nil
	case "pink":
		return Pink, nil
	case "brown":
		return Brown, nil
	default:
		return 0, fmt.Errorf("unknown noise colour: %q", name)
	}
}

// NoiseGenerator holds the filter state for one noise stream
type NoiseGenerator struct {
	colour Colour
	rng    *rand.Rand
	pink   [7]float64 // Paul Kellet filter taps
	brown  float64
}

// NewNoiseGenerator creates a generator; equal seeds give equal sequences
func NewNoiseGenerator(colour Colour, seed uint64) *NoiseGenerator {
	return &NoiseGenerator{
		colour: colour,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

// Colour returns the generator's colour
func (g *NoiseGenerator) Colour() Colour {
	return g.colour
}

// Next returns the next full-range sample
func (g *NoiseGenerator) Next() uint16 {
	white := g.rng.Float64()*2 - 1

	var v float64
	switch g.colour {
	case Pink:
		p := &g.pink
		p[0] = 0.99886*p[0] + white*0.0555179
		p[1] = 0.99332*p[1] + white*0.0750759
		p[2] = 0.96900*p[2] + white*0.1538520
		p[3] = 0.86650*p[3] + white*0.3104856
		p[4] = 0.55000*p[4] + white*0.5329522
		p[5] = -0.7616*p[5] - white*0.0168980
		v = (p[0] + p[1] + p[2] + p[3] + p[4] + p[5] + p[6] + white*0.5362) * 0.11
		p[6] = white * 0.115926
	case Brown:
		g.brown = (g.brown + 0.02*white) / 1.02
		v = g.brown * 3.5
	default:
		v = white
	}

	return toSample(v)
}

// toSample maps [-1, 1] onto the full unsigned range
func toSample(v float64) uint16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return uint16(math.Round((v + 1) * float64(audio.FullScale) / 2))
}
