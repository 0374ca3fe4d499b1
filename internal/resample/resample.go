// Package resample reduces the sample rate of captured audio down to the
// rate the remote service expects.
package resample

import (
	"fmt"
	"math"
)

// Downsample converts samples from one rate to a lower one by averaging the
// block of input samples that maps onto each output sample (a box filter).
// Content above the new Nyquist limit aliases; the trade-off buys low
// latency over a windowed-sinc filter. Upsampling is not supported.
func Downsample(samples []float32, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("resample: invalid rates %d -> %d", from, to)
	}
	if to > from {
		return nil, fmt.Errorf("resample: cannot upsample %d -> %d", from, to)
	}
	if from == to {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	ratio := float64(from) / float64(to)
	n := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		start := int(math.Round(float64(i) * ratio))
		end := int(math.Round(float64(i+1) * ratio))
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			// no source samples fall in this bucket
			continue
		}
		var sum float64
		for j := start; j < end; j++ {
			sum += float64(samples[j])
		}
		out[i] = float32(sum / float64(end-start))
	}
	return out, nil
}
