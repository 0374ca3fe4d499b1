package resample

import (
	"math"
	"testing"
)

func TestIdentityWhenRatesEqual(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3, -0.4}
	got, err := Downsample(in, 16000, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, in[i], got[i])
		}
	}
	if len(in) > 0 && &got[0] == &in[0] {
		t.Fatal("identity result should be a copy, not the input slice")
	}
}

func TestOutputLengthLaw(t *testing.T) {
	tests := []struct {
		name string
		n    int
		from int
		to   int
	}{
		{"48k to 16k exact thirds", 4096, 48000, 16000},
		{"44.1k to 16k non-integer", 4096, 44100, 16000},
		{"24k to 16k", 2400, 24000, 16000},
		{"48k to 16k odd length", 1001, 48000, 16000},
		{"8k to 8k", 160, 8000, 8000},
		{"tiny input", 5, 48000, 16000},
		{"empty input", 0, 48000, 16000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]float32, tt.n)
			got, err := Downsample(in, tt.from, tt.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := int(math.Round(float64(tt.n) * float64(tt.to) / float64(tt.from)))
			if len(got) != want {
				t.Errorf("length = %d, want %d", len(got), want)
			}
		})
	}
}

func TestBoxFilterAverages(t *testing.T) {
	// 2:1 decimation averages adjacent pairs.
	in := []float32{0.0, 1.0, 0.5, 0.5, 1.0, 0.0, -0.5, 0.5}
	got, err := Downsample(in, 48000, 24000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{0.5, 0.5, 0.5, 0.0}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestConstantSignalSurvivesNonIntegerRatio(t *testing.T) {
	in := make([]float32, 4410)
	for i := range in {
		in[i] = 0.25
	}
	got, err := Downsample(in, 44100, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range got {
		if math.Abs(float64(s-0.25)) > 1e-6 {
			t.Fatalf("sample %d: expected 0.25, got %f", i, s)
		}
	}
}

func TestUpsampleRejected(t *testing.T) {
	if _, err := Downsample([]float32{0}, 16000, 48000); err == nil {
		t.Error("expected error for upsampling request")
	}
}

func TestInvalidRatesRejected(t *testing.T) {
	if _, err := Downsample([]float32{0}, 0, 16000); err == nil {
		t.Error("expected error for zero input rate")
	}
	if _, err := Downsample([]float32{0}, 48000, -1); err == nil {
		t.Error("expected error for negative output rate")
	}
}
