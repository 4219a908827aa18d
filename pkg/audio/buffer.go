// Package audio provides the in-memory PCM representation shared by the
// synthesis engine and the effects pipeline, plus RIFF/WAVE container
// encoding and parsing.
//
// All audio flowing through DJZ-Speak is little-endian 16-bit signed PCM.
// A [Buffer] carries its format alongside the raw bytes; the format fields
// are fixed for the lifetime of a synthesis call. Only the output layer
// changes formats, via [Convert].
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Buffer holds raw PCM audio together with its format.
type Buffer struct {
	// Data is little-endian int16 PCM, interleaved when Channels > 1.
	Data []byte

	// SampleRate in Hz (e.g., 22050 for eSpeak-NG output).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// BitDepth is the bits per sample. Always 16 for DJZ-Speak buffers;
	// carried explicitly so output layers can write correct WAV headers.
	BitDepth int
}

// SampleCount returns the number of samples in the buffer (counting each
// channel's sample separately).
func (b *Buffer) SampleCount() int {
	return len(b.Data) / 2
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := b.SampleCount() / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a deep copy of the buffer. Effect stages operate on copies so
// the raw engine output stays untouched for callers that want both.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{
		Data:       data,
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		BitDepth:   b.BitDepth,
	}
}

// Validate reports whether the buffer describes a coherent PCM stream.
func (b *Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate %d is not positive", b.SampleRate)
	}
	if b.Channels != 1 && b.Channels != 2 {
		return fmt.Errorf("audio: channel count %d is not mono or stereo", b.Channels)
	}
	if b.BitDepth != 16 {
		return fmt.Errorf("audio: bit depth %d is unsupported (only 16-bit PCM)", b.BitDepth)
	}
	if len(b.Data)%2 != 0 {
		return fmt.Errorf("audio: odd byte count %d in int16 PCM data", len(b.Data))
	}
	return nil
}

// Samples decodes the PCM bytes into int16 samples.
func (b *Buffer) Samples() []int16 {
	samples := make([]int16, len(b.Data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b.Data[i*2:]))
	}
	return samples
}

// Floats decodes the PCM bytes into float64 samples normalised to [-1, 1).
// The effects pipeline decodes once, runs its stages on the float slice, and
// encodes once via [Buffer.SetFloats].
func (b *Buffer) Floats() []float64 {
	out := make([]float64, len(b.Data)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(b.Data[i*2:]))
		out[i] = float64(s) / 32768.0
	}
	return out
}

// SetFloats re-encodes float64 samples into the buffer's PCM bytes, clamping
// to the int16 range. The slice length must match the buffer's sample count.
func (b *Buffer) SetFloats(samples []float64) {
	if len(samples)*2 != len(b.Data) {
		b.Data = make([]byte, len(samples)*2)
	}
	for i, f := range samples {
		v := f * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(b.Data[i*2:], uint16(int16(v)))
	}
}

// FromSamples builds a Buffer from int16 samples at the given format.
func FromSamples(samples []int16, sampleRate, channels int) *Buffer {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &Buffer{
		Data:       data,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
	}
}
