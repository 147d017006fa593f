package rescale

import (
	"context"
	"sync/atomic"
)

// horizontalWorker resamples along X every source row with y mod workers ==
// worker, writing destination-width rows into the intermediate buffer. Workers
// own disjoint intermediate rows, so no synchronization is needed between them.
func (r *Resampler) horizontalWorker(ctx context.Context, src RowReader, hor *subsampling, inter []uint8, worker, workers int, counter *atomic.Int64) error {
	srcW, srcH := src.Size()
	c := src.Channels()
	stride := len(hor.counts) * c
	row := r.pool.get(srcW * c)
	defer r.pool.put(row)
	for y := worker; y < srcH; y += workers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		src.ReadRow(y, row)
		resampleRow(inter[y*stride:(y+1)*stride], row, hor, c)
		counter.Add(1)
	}
	return nil
}

// resampleRow resamples one interleaved row to destination width.
func resampleRow(dst, src []uint8, t *subsampling, c int) {
	if c == 1 {
		for i := range t.counts {
			base := i * t.contributors
			var acc float32
			for k := 0; k < int(t.counts[i]); k++ {
				acc += float32(src[t.picks[base+k]]) * t.weights[base+k]
			}
			dst[i] = clamp(acc)
		}
		return
	}
	for i := range t.counts {
		base := i * t.contributors
		var acc [4]float32
		for k := 0; k < int(t.counts[i]); k++ {
			idx := int(t.picks[base+k]) * c
			w := t.weights[base+k]
			for ch := 0; ch < c; ch++ {
				acc[ch] += float32(src[idx+ch]) * w
			}
		}
		for ch := 0; ch < c; ch++ {
			dst[i*c+ch] = clamp(acc[ch])
		}
	}
}

// verticalWorker resamples along Y every destination column with x mod workers
// == worker, reading the intermediate buffer and writing the flat output.
// Workers own disjoint column offsets of the output.
func verticalWorker(ctx context.Context, inter []uint8, ver *subsampling, out []uint8, dstW, c, worker, workers int, counter *atomic.Int64) error {
	dstH := len(ver.counts)
	stride := dstW * c
	for x := worker; x < dstW; x += workers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if c == 1 {
			for y := 0; y < dstH; y++ {
				base := y * ver.contributors
				var acc float32
				for k := 0; k < int(ver.counts[y]); k++ {
					acc += float32(inter[int(ver.picks[base+k])*stride+x]) * ver.weights[base+k]
				}
				out[y*stride+x] = clamp(acc)
			}
		} else {
			for y := 0; y < dstH; y++ {
				base := y * ver.contributors
				var acc [4]float32
				for k := 0; k < int(ver.counts[y]); k++ {
					off := int(ver.picks[base+k])*stride + x*c
					w := ver.weights[base+k]
					for ch := 0; ch < c; ch++ {
						acc[ch] += float32(inter[off+ch]) * w
					}
				}
				for ch := 0; ch < c; ch++ {
					out[y*stride+x*c+ch] = clamp(acc[ch])
				}
			}
		}
		counter.Add(1)
	}
	return nil
}
