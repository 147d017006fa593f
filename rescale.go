// Package rescale implements high quality separable image resampling.
//
// A Resampler scales a source image to arbitrary destination dimensions with a
// configurable reconstruction filter (Lanczos-3 by default), in two passes: a
// horizontal pass resamples every source row to destination width, then a
// vertical pass resamples every destination column to destination height. Both
// passes are striped across workers and accumulate in single precision with
// per-sample normalized weights, so output bytes are identical for any worker
// count.
//
// Alpha is filtered linearly, as if it were an ordinary channel. This is not
// premultiplied-alpha-correct, but matches the common behavior of byte-wise
// resamplers.
package rescale

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidArgument reports unusable dimensions, scales or destinations.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConcurrentInvocation reports a reentrant resample on one instance.
	ErrConcurrentInvocation = errors.New("concurrent invocation")
	// ErrWorkerFailed reports a pass worker that died mid-resample.
	ErrWorkerFailed = errors.New("worker failed")
)

// minDstSize is the smallest supported destination axis.
const minDstSize = 3

// Options adjust a Resampler. The zero value selects Lanczos-3 and one worker
// per CPU.
type Options struct {
	// Filter is the reconstruction kernel. Defaults to Lanczos3.
	Filter Filter
	// Workers is the number of goroutines per pass. Defaults to
	// runtime.NumCPU().
	Workers int
}

// New creates a Resampler with the provided Options.
func New(opts Options) *Resampler {
	if opts.Filter == nil {
		opts.Filter = Lanczos3
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Resampler{
		filter:  opts.Filter,
		workers: opts.Workers,
		pool:    newBufPool(),
	}
}

// Resampler resamples images. A single instance may be reused across calls but
// must not be invoked concurrently with itself; a reentrant call fails with
// ErrConcurrentInvocation.
type Resampler struct {
	filter    Filter
	workers   int
	listeners []ProgressFunc
	pool      *bufPool
	busy      atomic.Bool
}

// OnProgress registers a progress listener. Listeners receive monotone
// fractions in [0, 1] during each subsequent resample and a final 1.0 before a
// successful call returns. OnProgress must not be called while a resample is
// in flight.
func (r *Resampler) OnProgress(fn ProgressFunc) {
	r.listeners = append(r.listeners, fn)
}

// Resample scales src to dstW x dstH and returns the result. The destination
// type is derived from the source: grayscale sources yield *image.Gray (or
// *image.Gray16 for 16-bit sources), everything else yields *image.NRGBA.
//
// Cancelling ctx aborts the resample after the rows and columns in flight
// finish; the context's error is returned.
func (r *Resampler) Resample(ctx context.Context, src image.Image, dstW, dstH int) (image.Image, error) {
	reader := newRowReader(src)
	_, deep := src.(*image.Gray16)
	dst := newDestination(reader.Channels(), dstW, dstH, deep)
	if err := r.resample(ctx, reader, dst, dstW, dstH); err != nil {
		return nil, err
	}
	return dst, nil
}

// ResampleScale scales src by a uniform factor. Destination dimensions are
// src dimensions times scale, rounded half up.
func (r *Resampler) ResampleScale(ctx context.Context, src image.Image, scale float64) (image.Image, error) {
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return nil, fmt.Errorf("%w: scale %v", ErrInvalidArgument, scale)
	}
	b := src.Bounds()
	dstW := int(math.Floor(float64(b.Dx())*scale + 0.5))
	dstH := int(math.Floor(float64(b.Dy())*scale + 0.5))
	return r.Resample(ctx, src, dstW, dstH)
}

// ResampleInto scales src into the caller-supplied dst, whose type must be
// able to carry the source's channel count. dst is only written on success
// and must be distinct from src.
func (r *Resampler) ResampleInto(ctx context.Context, dst image.Image, src image.Image) error {
	if dst == src {
		return fmt.Errorf("%w: cannot resample in place", ErrInvalidArgument)
	}
	b := dst.Bounds()
	return r.resample(ctx, newRowReader(src), dst, b.Dx(), b.Dy())
}

func (r *Resampler) resample(ctx context.Context, src RowReader, dst image.Image, dstW, dstH int) error {
	if dstW < minDstSize || dstH < minDstSize {
		return fmt.Errorf("%w: destination %dx%d is below %dx%d", ErrInvalidArgument, dstW, dstH, minDstSize, minDstSize)
	}
	if !r.busy.CompareAndSwap(false, true) {
		return ErrConcurrentInvocation
	}
	defer r.busy.Store(false)

	if !canHold(dst, src.Channels()) {
		return fmt.Errorf("%w: destination %T cannot hold %d channels", ErrInvalidArgument, dst, src.Channels())
	}

	srcW, srcH := src.Size()
	hor, err := newSubsampling(r.filter, srcW, dstW)
	if err != nil {
		return err
	}
	ver, err := newSubsampling(r.filter, srcH, dstH)
	if err != nil {
		return err
	}

	c := src.Channels()
	inter := r.pool.get(srcH * dstW * c)
	defer r.pool.put(inter)
	out := r.pool.get(dstH * dstW * c)
	defer r.pool.put(out)

	var counter atomic.Int64
	sampler := newProgressSampler(&counter, int64(srcH+dstW), r.listeners)
	sampler.start()

	if err := r.runPass(ctx, func(ctx context.Context, worker int) error {
		return r.horizontalWorker(ctx, src, hor, inter, worker, r.workers, &counter)
	}); err != nil {
		sampler.cancel()
		return err
	}
	if err := r.runPass(ctx, func(ctx context.Context, worker int) error {
		return verticalWorker(ctx, inter, ver, out, dstW, c, worker, r.workers, &counter)
	}); err != nil {
		sampler.cancel()
		return err
	}
	sampler.finish()

	return writeOutput(out, dst, dstW, dstH, c)
}

// runPass runs one worker per stripe and waits for all of them. The first
// failure cancels the remaining workers at their next row or column boundary.
// A panicking worker surfaces as ErrWorkerFailed.
func (r *Resampler) runPass(ctx context.Context, work func(ctx context.Context, worker int) error) error {
	errg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < r.workers; w++ {
		errg.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: %v", ErrWorkerFailed, p)
				}
			}()
			return work(ctx, w)
		})
	}
	return errg.Wait()
}
