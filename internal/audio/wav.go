package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

const wavHeaderSize = 44

// EncodeWAV serializes the waveform as a 16-bit PCM mono WAV file image
func EncodeWAV(w Waveform) []byte {
	pcm := w.ToPCM16()

	numChannels := 1
	bitsPerSample := 16
	byteRate := w.SampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := make([]byte, wavHeaderSize+len(pcm))
	header := buf[:wavHeaderSize]

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	writeUint32LE(header[4:8], uint32(wavHeaderSize+len(pcm)-8))
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	writeUint32LE(header[16:20], 16) // PCM format chunk size
	writeUint16LE(header[20:22], 1)  // PCM format
	writeUint16LE(header[22:24], uint16(numChannels))
	writeUint32LE(header[24:28], uint32(w.SampleRate))
	writeUint32LE(header[28:32], uint32(byteRate))
	writeUint16LE(header[32:34], uint16(blockAlign))
	writeUint16LE(header[34:36], uint16(bitsPerSample))

	// data sub-chunk
	copy(header[36:40], "data")
	writeUint32LE(header[40:44], uint32(len(pcm)))

	copy(buf[wavHeaderSize:], pcm)
	return buf
}

// WriteWAVFile writes the waveform to path as a 16-bit PCM mono WAV file
func WriteWAVFile(path string, w Waveform) error {
	if err := os.WriteFile(path, EncodeWAV(w), 0644); err != nil {
		return fmt.Errorf("failed to write WAV file %s: %w", path, err)
	}
	return nil
}

// DecodeWAV parses a 16-bit PCM mono WAV file image back into a Waveform
func DecodeWAV(data []byte) (Waveform, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Waveform{}, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		sampleRate    int
		haveFormat    bool
		bitsPerSample int
		numChannels   int
		pcm           []byte
	)

	// Walk the chunk list; unknown chunks are skipped
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return Waveform{}, fmt.Errorf("truncated WAV chunk %q", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Waveform{}, fmt.Errorf("short fmt chunk")
			}
			audioFormat := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if audioFormat != 1 {
				return Waveform{}, fmt.Errorf("unsupported WAV encoding %d, want PCM", audioFormat)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFormat = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word aligned
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFormat {
		return Waveform{}, fmt.Errorf("missing fmt chunk")
	}
	if numChannels != 1 {
		return Waveform{}, fmt.Errorf("unsupported channel count %d, want mono", numChannels)
	}
	if bitsPerSample != 16 {
		return Waveform{}, fmt.Errorf("unsupported bit depth %d, want 16", bitsPerSample)
	}
	if pcm == nil {
		return Waveform{}, fmt.Errorf("missing data chunk")
	}

	return FromPCM16(pcm, sampleRate), nil
}

func writeUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func writeUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
