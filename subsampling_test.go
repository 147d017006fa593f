package rescale

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestSubsamplingWeightsNormalized(t *testing.T) {
	filters := map[string]Filter{
		"lanczos3":   Lanczos3,
		"lanczos2":   Lanczos2,
		"triangle":   Triangle,
		"catmullrom": CatmullRom,
		"mitchell":   Mitchell,
	}
	sizes := []struct {
		src, dst int
	}{
		{100, 50},
		{50, 100},
		{16, 16},
		{400, 300},
		{250, 300},
		{7, 3},
		{3, 11},
		{1, 5},
	}
	for name, f := range filters {
		for _, s := range sizes {
			t.Run(fmt.Sprintf("%s/%dto%d", name, s.src, s.dst), func(t *testing.T) {
				tab, err := newSubsampling(f, s.src, s.dst)
				if err != nil {
					t.Fatalf("newSubsampling() error = %v", err)
				}
				for p := 0; p < s.dst; p++ {
					base := p * tab.contributors
					n := int(tab.counts[p])
					if n > tab.contributors {
						t.Fatalf("sample %d has %d contributions, more than bound %d", p, n, tab.contributors)
					}
					var sum float64
					for k := 0; k < n; k++ {
						if idx := tab.picks[base+k]; idx < 0 || int(idx) >= s.src {
							t.Fatalf("sample %d picks out of range source index %d", p, idx)
						}
						sum += float64(tab.weights[base+k])
					}
					if n == 0 {
						continue
					}
					if math.Abs(sum-1) > 1e-5 {
						t.Errorf("sample %d weights sum to %v, want 1", p, sum)
					}
				}
			})
		}
	}
}

func TestSubsamplingIdentity(t *testing.T) {
	tab, err := newSubsampling(Lanczos3, 16, 16)
	if err != nil {
		t.Fatalf("newSubsampling() error = %v", err)
	}
	for p := 0; p < 16; p++ {
		if got := tab.counts[p]; got != 1 {
			t.Fatalf("sample %d has %d contributions, want 1", p, got)
		}
		base := p * tab.contributors
		if got := tab.picks[base]; int(got) != p {
			t.Errorf("sample %d picks source index %d, want %d", p, got, p)
		}
		if got := tab.weights[base]; got != 1 {
			t.Errorf("sample %d has weight %v, want 1", p, got)
		}
	}
}

func TestSubsamplingDownscaleBound(t *testing.T) {
	// Halving stretches the lanczos3 support to 6, leaving room for 12
	// contributions plus the rounding headroom.
	tab, err := newSubsampling(Lanczos3, 100, 50)
	if err != nil {
		t.Fatalf("newSubsampling() error = %v", err)
	}
	if tab.contributors != 14 {
		t.Errorf("contributors = %d, want 14", tab.contributors)
	}
}

func TestSubsamplingInvalidSizes(t *testing.T) {
	tests := []struct {
		src, dst int
	}{
		{0, 10},
		{10, 0},
		{0, 0},
		{-1, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dto%d", tt.src, tt.dst), func(t *testing.T) {
			if _, err := newSubsampling(Lanczos3, tt.src, tt.dst); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("newSubsampling() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1000, 0},
		{-0.1, 0},
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{127.5, 128},
		{254.4, 254},
		{254.5, 255},
		{255, 255},
		{1000, 255},
	}
	for _, tt := range tests {
		if got := clamp(tt.in); got != tt.want {
			t.Errorf("clamp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
