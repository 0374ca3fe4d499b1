// Package pcm converts between float32 sample buffers and the 16-bit
// little-endian PCM byte streams carried on both legs of the voice channel.
package pcm

const (
	// InputRate is the sample rate the service expects for captured audio.
	InputRate = 16000
	// OutputRate is the sample rate of synthesized audio from the service.
	OutputRate = 24000
	// BytesPerSample is the width of one encoded sample.
	BytesPerSample = 2
)

// Encode converts float samples to 16-bit signed little-endian PCM.
// Samples outside [-1, 1] are clamped. Negative values scale by 32768 and
// non-negative by 32767 so that s = 1.0 cannot overflow int16.
func Encode(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

// Decode converts 16-bit signed little-endian PCM bytes to float samples in
// [-1, 1). A trailing odd byte is dropped.
func Decode(data []byte) []float32 {
	n := len(data) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		out[i] = float32(v) / 32768
	}
	return out
}
