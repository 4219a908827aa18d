package audio

import (
	"encoding/binary"
	"errors"
)

// ParseWAV walks the RIFF/WAVE container in wav and returns a [Buffer]
// referencing the PCM payload of the "data" chunk, with format taken from the
// "fmt " sub-chunk. Walking the chunk list is more robust than hardcoding a
// 44-byte offset because the fmt chunk size may vary (eSpeak-NG emits a plain
// 16-byte fmt chunk, other encoders pad it).
//
// Returns an error if wav is not a valid RIFF/WAVE container, if the fmt or
// data chunk cannot be located, or if the stream is not 16-bit PCM.
func ParseWAV(wav []byte) (*Buffer, error) {
	if len(wav) < 12 {
		return nil, errors.New("audio: WAV data too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return nil, errors.New("audio: WAV data missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return nil, errors.New("audio: WAV data missing WAVE identifier")
	}

	buf := &Buffer{}
	foundFmt := false

	// Walk RIFF chunks starting immediately after the 12-byte RIFF/WAVE header.
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				buf.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				buf.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				buf.BitDepth = int(binary.LittleEndian.Uint16(fmtData[14:16]))
				foundFmt = true
			}
		case "data":
			if !foundFmt {
				return nil, errors.New("audio: WAV data chunk appears before fmt chunk")
			}
			if buf.BitDepth != 16 {
				return nil, errors.New("audio: WAV stream is not 16-bit PCM")
			}
			end := offset + 8 + chunkSize
			if end > len(wav) {
				// eSpeak-NG streams to stdout with a placeholder chunk size;
				// take everything that is actually present.
				end = len(wav)
			}
			buf.Data = wav[offset+8 : end]
			return buf, nil
		}

		// Advance past this chunk (chunks are word-aligned: pad by 1 if odd size).
		next := offset + 8 + chunkSize
		if chunkSize%2 != 0 {
			next++
		}
		if next <= offset {
			// Placeholder or corrupt chunk size — stop walking rather than spin.
			break
		}
		offset = next
	}
	return nil, errors.New("audio: WAV data missing data chunk")
}

// EncodeWAV wraps the buffer's PCM payload in a canonical 44-byte RIFF/WAVE
// header so callers can write it straight to a .wav file or player.
func EncodeWAV(b *Buffer) []byte {
	dataLen := len(b.Data)
	out := make([]byte, 44+dataLen)

	byteRate := b.SampleRate * b.Channels * b.BitDepth / 8
	blockAlign := b.Channels * b.BitDepth / 8

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(b.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(b.BitDepth))

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))
	copy(out[44:], b.Data)

	return out
}
