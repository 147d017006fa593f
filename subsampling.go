package rescale

import (
	"fmt"
	"math"
)

// subsampling is a per-axis contribution table: for every destination sample it
// records which source samples are blended and with what weights. Tables are
// immutable after construction and shared read-only across workers.
type subsampling struct {
	// contributors is the upper bound on source samples influencing any one
	// destination sample along this axis.
	contributors int
	// counts[p] is the number of contributions actually used by destination
	// sample p. Always <= contributors.
	counts []int32
	// picks and weights are flattened rows of length contributors. The valid
	// entries for destination p are [p*contributors, p*contributors+counts[p]).
	picks   []int32
	weights []float32
}

// newSubsampling precomputes the contribution table for resampling an axis of
// srcSize samples to dstSize samples with filter f.
//
// When shrinking, the filter support is stretched by the inverse scale and the
// kernel argument renormalized against the ceiling of the stretched support, so
// that the continuous kernel is sampled densely enough at non-integer strides.
// Weights of every destination sample are normalized to sum to 1.
func newSubsampling(f Filter, srcSize, dstSize int) (*subsampling, error) {
	if srcSize <= 0 || dstSize <= 0 {
		return nil, fmt.Errorf("%w: cannot subsample %d samples to %d", ErrInvalidArgument, srcSize, dstSize)
	}

	scale := float64(dstSize) / float64(srcSize)
	radius := f.SamplingRadius()
	filterSize, normalization, excess := radius, 1.0, 1
	if scale < 1 {
		filterSize = radius / scale
		normalization = radius / math.Ceil(filterSize)
		excess = 2
	}

	t := &subsampling{
		contributors: int(filterSize*2) + excess,
		counts:       make([]int32, dstSize),
	}
	t.picks = make([]int32, dstSize*t.contributors)
	t.weights = make([]float32, dstSize*t.contributors)

	for p := 0; p < dstSize; p++ {
		center := (float64(p) + 0.5) / scale
		lo := int(math.Floor(center - filterSize))
		hi := int(math.Floor(center + filterSize + 1))
		base := p * t.contributors
		var sum float64
		for s := lo; s <= hi; s++ {
			// Source sample s occupies [s, s+1); its center is s+0.5.
			w := f.Apply((center - float64(s) - 0.5) * normalization)
			if w == 0 {
				continue
			}
			idx := s
			if idx < 0 {
				idx = -idx
			} else if idx >= srcSize {
				idx = 2*srcSize - idx - 1
			}
			// Mirroring overshoots when the support exceeds the axis itself.
			if idx < 0 {
				idx = 0
			} else if idx >= srcSize {
				idx = srcSize - 1
			}
			n := int(t.counts[p])
			if n == t.contributors {
				break
			}
			t.picks[base+n] = int32(idx)
			t.weights[base+n] = float32(w)
			t.counts[p]++
			sum += w
		}
		if sum != 0 {
			inv := float32(1 / sum)
			for k := 0; k < int(t.counts[p]); k++ {
				t.weights[base+k] *= inv
			}
		}
	}

	return t, nil
}
