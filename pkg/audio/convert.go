package audio

// Format conversion for the output layer. The engine always emits mono at
// its native rate; when the settings file asks for a different rate or
// channel layout, the clip is converted once, just before writing.

// Convert returns a copy of buf at the target sample rate and channel count.
// When buf already matches, the copy is byte-identical. Only mono and stereo
// are supported, matching [Buffer.Validate].
func Convert(buf *Buffer, sampleRate, channels int) *Buffer {
	out := buf
	if sampleRate > 0 && sampleRate != out.SampleRate {
		out = Resample(out, sampleRate)
	}
	switch {
	case channels == 1 && out.Channels == 2:
		out = ToMono(out)
	case channels == 2 && out.Channels == 1:
		out = ToStereo(out)
	}
	if out == buf {
		out = buf.Clone()
	}
	return out
}

// Resample returns a copy of buf at the target rate using per-channel linear
// interpolation. A rate at or below zero, or equal to the current one,
// returns a plain clone.
func Resample(buf *Buffer, rate int) *Buffer {
	if rate <= 0 || rate == buf.SampleRate || buf.SampleRate <= 0 {
		return buf.Clone()
	}

	src := buf.Samples()
	channels := buf.Channels
	if channels < 1 {
		channels = 1
	}
	frames := len(src) / channels
	outFrames := int(int64(frames) * int64(rate) / int64(buf.SampleRate))

	dst := make([]int16, outFrames*channels)
	ratio := float64(buf.SampleRate) / float64(rate)
	for f := 0; f < outFrames; f++ {
		pos := float64(f) * ratio
		i := int(pos)
		frac := pos - float64(i)
		if i >= frames-1 {
			i = frames - 1
			frac = 0
		}
		for c := 0; c < channels; c++ {
			a := float64(src[i*channels+c])
			b := a
			if i+1 < frames {
				b = float64(src[(i+1)*channels+c])
			}
			dst[f*channels+c] = int16(a + (b-a)*frac)
		}
	}

	out := FromSamples(dst, rate, channels)
	out.BitDepth = buf.BitDepth
	return out
}

// ToStereo duplicates a mono buffer into two interleaved channels. Non-mono
// input is cloned unchanged.
func ToStereo(buf *Buffer) *Buffer {
	if buf.Channels != 1 {
		return buf.Clone()
	}
	src := buf.Samples()
	dst := make([]int16, len(src)*2)
	for i, s := range src {
		dst[i*2] = s
		dst[i*2+1] = s
	}
	out := FromSamples(dst, buf.SampleRate, 2)
	out.BitDepth = buf.BitDepth
	return out
}

// ToMono averages a stereo buffer down to one channel. Non-stereo input is
// cloned unchanged.
func ToMono(buf *Buffer) *Buffer {
	if buf.Channels != 2 {
		return buf.Clone()
	}
	src := buf.Samples()
	frames := len(src) / 2
	dst := make([]int16, frames)
	for i := 0; i < frames; i++ {
		// Averaging two int16 values cannot overflow int32.
		dst[i] = int16((int32(src[i*2]) + int32(src[i*2+1])) / 2)
	}
	out := FromSamples(dst, buf.SampleRate, 1)
	out.BitDepth = buf.BitDepth
	return out
}
