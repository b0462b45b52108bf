package audio

// DefaultSampleRate is the sample rate the recognition backends expect.
const DefaultSampleRate = 16000

// Waveform holds decoded mono PCM audio as float32 samples in [-1, 1].
type Waveform struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the length of the waveform in seconds
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// FromPCM16 converts little-endian 16-bit PCM bytes into a Waveform.
// A trailing odd byte is ignored.
func FromPCM16(data []byte, sampleRate int) Waveform {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		samples[i] = float32(v) / 32768.0
	}
	return Waveform{SampleRate: sampleRate, Samples: samples}
}

// ToPCM16 converts the waveform to little-endian 16-bit PCM bytes,
// clipping samples outside [-1, 1]
func (w Waveform) ToPCM16() []byte {
	data := make([]byte, len(w.Samples)*2)
	for i, s := range w.Samples {
		v := int(s * 32768.0)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		data[2*i] = byte(v)
		data[2*i+1] = byte(v >> 8)
	}
	return data
}
