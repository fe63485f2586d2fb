// ABOUTME: Linear PCM decoding to full-range unsigned samples
// ABOUTME: Supports 8-bit unsigned and 16/32-bit signed little-endian data
package audio

import (
	"encoding/binary"
	"fmt"
)

// BytesPerSample returns the storage size of one sample at the given bit depth
func BytesPerSample(bitDepth int) (int, error) {
	switch bitDepth {
	case 8, 16, 32:
		return bitDepth / 8, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 32)", bitDepth)
	}
}

// DecodePCM converts little-endian PCM bytes into dst and returns the number of samples written.
// Signed formats are offset so that zero maps to Silence.
func DecodePCM(dst []uint16, src []byte, bitDepth int) (int, error) {
	size, err := BytesPerSample(bitDepth)
	if err != nil {
		return 0, err
	}

	n := len(src) / size
	if n > len(dst) {
		n = len(dst)
	}

	switch bitDepth {
	case 8:
		for i := 0; i < n; i++ {
			dst[i] = uint16(src[i]) << 8
		}
	case 16:
		for i := 0; i < n; i++ {
			dst[i] = binary.LittleEndian.Uint16(src[i*2:]) ^ 0x8000
		}
	case 32:
		for i := 0; i < n; i++ {
			dst[i] = uint16((binary.LittleEndian.Uint32(src[i*4:]) ^ 0x80000000) >> 16)
		}
	}

	return n, nil
}
