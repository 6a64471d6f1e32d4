package platform

import "testing"

func TestMaxAlignMonotonic(t *testing.T) {
	tests := []struct {
		name string
		f    Features
		want int
	}{
		{"no features", 0, 8},
		{"sse2 only", FeatureSSE2, 16},
		{"neon only", FeatureNEON, 16},
		{"avx2", FeatureAVX2, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxAlign(tt.f); got != tt.want {
				t.Fatalf("MaxAlign(%v) = %d, want %d", tt.f, got, tt.want)
			}
		})
	}
}

func TestDetectCPUNeverPanics(t *testing.T) {
	c := DetectCPU()
	if c.MaxAlign != 8 && c.MaxAlign != 16 && c.MaxAlign != 32 {
		t.Fatalf("unexpected MaxAlign %d", c.MaxAlign)
	}
}

func TestNopLoggerSatisfiesInterface(t *testing.T) {
	var l Logger = NopLogger{}
	l.Trace("x")
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
