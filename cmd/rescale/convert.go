package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	// Decoders for formats the tool does not encode.
	_ "image/gif"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/errgroup"

	"github.com/korsva/rescale"
)

var errUnknownFilter = errors.New("unknown filter")

func selectFilter(name string) (rescale.Filter, error) {
	switch strings.ToLower(name) {
	case "lanczos3":
		return rescale.Lanczos3, nil
	case "lanczos2":
		return rescale.Lanczos2, nil
	case "triangle":
		return rescale.Triangle, nil
	case "catmullrom":
		return rescale.CatmullRom, nil
	case "mitchell":
		return rescale.Mitchell, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownFilter, name)
}

// job is a decoded input on its way through the pipeline.
type job struct {
	Image image.Image
	Path  string
}

// runConvert walks the inputs, decodes them on NumCPU workers and resamples
// them one at a time on a single converter that owns its own Resampler.
func runConvert(ctx context.Context, inputs []string) error {
	filter, err := selectFilter(flags.filter)
	if err != nil {
		return err
	}
	if flags.outdir != "" {
		if err := os.MkdirAll(flags.outdir, 0755); err != nil {
			return fmt.Errorf("cannot create outdir: %w", err)
		}
	}

	errg, ctx := errgroup.WithContext(ctx)

	paths := make(chan string)
	errg.Go(func() error {
		defer close(paths)
		return walkInputs(ctx, paths, inputs)
	})

	jobs := make(chan job)
	errg.Go(func() error {
		defer close(jobs)
		return decode(ctx, jobs, paths)
	})

	// Resampling is parallel internally, so a single converter keeps the
	// progress log readable without starving the CPUs.
	errg.Go(func() error {
		c := newConverter(filter)
		for j := range jobs {
			out, err := c.convert(ctx, j)
			if err != nil {
				return fmt.Errorf("cannot convert %s: %w", j.Path, err)
			}
			slog.Info("converted", "in", j.Path, "out", out)
		}
		return nil
	})

	return errg.Wait()
}

// walkInputs emits every image file reachable from the given paths. Files are
// emitted as-is; directories are walked recursively.
func walkInputs(ctx context.Context, paths chan<- string, inputs []string) error {
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", in, err)
		}
		if !info.IsDir() {
			select {
			case paths <- in:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		err = filepath.WalkDir(in, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("cannot walk %s: %w", in, err)
			}
			if e.IsDir() || !isImage(path) {
				return nil
			}
			select {
			case paths <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func isImage(fname string) bool {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return true
	default:
		return false
	}
}

// decode reads a channel of paths and emits decoded jobs.
func decode(ctx context.Context, jobs chan<- job, paths <-chan string) error {
	errg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < runtime.NumCPU(); i++ {
		errg.Go(func() error {
			for path := range paths {
				img, err := decodeImage(path)
				if err != nil {
					return fmt.Errorf("cannot decode %s: %w", path, err)
				}
				select {
				case jobs <- job{img, path}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	return errg.Wait()
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

type converter struct {
	resampler *rescale.Resampler
	// current is the file the progress listener reports on.
	current string
	lastPct int
}

func newConverter(filter rescale.Filter) *converter {
	c := &converter{
		resampler: rescale.New(rescale.Options{Filter: filter, Workers: flags.workers}),
	}
	c.resampler.OnProgress(func(fraction float64) {
		pct := int(fraction * 100)
		if pct >= c.lastPct+10 {
			c.lastPct = pct
			slog.Debug("resampling", "file", c.current, "pct", pct)
		}
	})
	return c
}

func (c *converter) convert(ctx context.Context, j job) (string, error) {
	c.current, c.lastPct = j.Path, 0
	var (
		img image.Image
		err error
	)
	if flags.scale > 0 {
		img, err = c.resampler.ResampleScale(ctx, j.Image, flags.scale)
	} else {
		w, h := fitDims(j.Image.Bounds(), flags.width, flags.height)
		img, err = c.resampler.Resample(ctx, j.Image, w, h)
	}
	if err != nil {
		return "", err
	}
	out := outputName(j.Path)
	return out, saveImage(out, img)
}

// fitDims fits the source bounds into the w x h bounding box, preserving the
// aspect ratio unless both sides are given. A zero side is derived from the
// other; two zeros keep the source size.
func fitDims(b image.Rectangle, w, h int) (int, int) {
	sw, sh := float64(b.Dx()), float64(b.Dy())
	switch {
	case w > 0 && h > 0:
		return w, h
	case w > 0:
		return w, int(math.Floor(float64(w)*sh/sw + 0.5))
	case h > 0:
		return int(math.Floor(float64(h)*sw/sh + 0.5)), h
	default:
		return b.Dx(), b.Dy()
	}
}

func outputName(in string) string {
	dir := filepath.Dir(in)
	if flags.outdir != "" {
		dir = flags.outdir
	}
	ext := outputExt(in)
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(dir, base+flags.suffix+ext)
}

// outputExt keeps encodable input formats and falls back to png for the rest.
func outputExt(in string) string {
	switch ext := strings.ToLower(filepath.Ext(in)); ext {
	case ".jpg", ".jpeg":
		return ext
	default:
		return ".png"
	}
}

func saveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := encodeImage(f, path, img); err != nil {
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}
	return nil
}

func encodeImage(w io.Writer, path string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: flags.quality})
	default:
		return png.Encode(w, img)
	}
}
