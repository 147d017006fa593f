package rescale

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// A RowReader decodes single rows of a source image into interleaved channel
// bytes in a fixed order: Y for 1 channel, B,G,R for 3 channels and A,B,G,R for
// 4 channels (low to high address). Rows are addressed 0-based from the top of
// the image regardless of the source's bounds offset.
//
// Readers must be safe for concurrent ReadRow calls on distinct rows.
type RowReader interface {
	// Size returns the source width and height in pixels.
	Size() (w, h int)
	// Channels returns the number of interleaved channels, one of 1, 3 or 4.
	Channels() int
	// ReadRow fills row with w*Channels() bytes of row y.
	ReadRow(y int, row []uint8)
}

// newRowReader normalizes a source image into a RowReader. Native rasters are
// read in place; anything else is converted via a draw fallback into an
// interleaved form first, 3 channels when the source is opaque and 4 otherwise.
func newRowReader(img image.Image) RowReader {
	switch i := img.(type) {
	case *image.Gray:
		return grayRows{i}
	case *image.Gray16:
		return gray16Rows{i}
	case *image.NRGBA:
		return abgrRows{pix: i.Pix, stride: i.Stride, rect: i.Rect, off: i.PixOffset(i.Rect.Min.X, i.Rect.Min.Y)}
	case *image.RGBA:
		// Alpha-premultiplied samples are filtered as they come; see the
		// package note on alpha handling.
		return abgrRows{pix: i.Pix, stride: i.Stride, rect: i.Rect, off: i.PixOffset(i.Rect.Min.X, i.Rect.Min.Y)}
	case *image.YCbCr:
		return ycbcrRows{i}
	default:
		return drawRows(img)
	}
}

// drawRows is the conversion fallback for unsupported image types.
func drawRows(img image.Image) RowReader {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return bgrRows{dst}
	}
	return abgrRows{pix: dst.Pix, stride: dst.Stride, rect: dst.Rect}
}

type grayRows struct {
	img *image.Gray
}

func (r grayRows) Size() (int, int) { return r.img.Rect.Dx(), r.img.Rect.Dy() }
func (r grayRows) Channels() int    { return 1 }

func (r grayRows) ReadRow(y int, row []uint8) {
	i := r.img.PixOffset(r.img.Rect.Min.X, r.img.Rect.Min.Y+y)
	copy(row, r.img.Pix[i:i+r.img.Rect.Dx()])
}

type gray16Rows struct {
	img *image.Gray16
}

func (r gray16Rows) Size() (int, int) { return r.img.Rect.Dx(), r.img.Rect.Dy() }
func (r gray16Rows) Channels() int    { return 1 }

// ReadRow keeps the high byte of each big-endian sample. The accumulation path
// is 8 bits per channel; Gray16 destinations are re-expanded on write.
func (r gray16Rows) ReadRow(y int, row []uint8) {
	i := r.img.PixOffset(r.img.Rect.Min.X, r.img.Rect.Min.Y+y)
	w := r.img.Rect.Dx()
	for x := 0; x < w; x++ {
		row[x] = r.img.Pix[i+x*2]
	}
}

// abgrRows reads 4-channel rasters stored R,G,B,A (NRGBA and RGBA share the
// layout) into A,B,G,R order.
type abgrRows struct {
	pix    []uint8
	stride int
	rect   image.Rectangle
	off    int
}

func (r abgrRows) Size() (int, int) { return r.rect.Dx(), r.rect.Dy() }
func (r abgrRows) Channels() int    { return 4 }

func (r abgrRows) ReadRow(y int, row []uint8) {
	i := r.off + y*r.stride
	w := r.rect.Dx()
	for x := 0; x < w; x++ {
		s := r.pix[i+x*4 : i+x*4+4 : i+x*4+4]
		d := row[x*4 : x*4+4 : x*4+4]
		d[0] = s[3]
		d[1] = s[2]
		d[2] = s[1]
		d[3] = s[0]
	}
}

// bgrRows reads an opaque NRGBA raster as 3 interleaved channels, dropping the
// constant alpha byte.
type bgrRows struct {
	img *image.NRGBA
}

func (r bgrRows) Size() (int, int) { return r.img.Rect.Dx(), r.img.Rect.Dy() }
func (r bgrRows) Channels() int    { return 3 }

func (r bgrRows) ReadRow(y int, row []uint8) {
	i := r.img.PixOffset(r.img.Rect.Min.X, r.img.Rect.Min.Y+y)
	w := r.img.Rect.Dx()
	for x := 0; x < w; x++ {
		s := r.img.Pix[i+x*4 : i+x*4+3 : i+x*4+3]
		d := row[x*3 : x*3+3 : x*3+3]
		d[0] = s[2]
		d[1] = s[1]
		d[2] = s[0]
	}
}

type ycbcrRows struct {
	img *image.YCbCr
}

func (r ycbcrRows) Size() (int, int) { return r.img.Rect.Dx(), r.img.Rect.Dy() }
func (r ycbcrRows) Channels() int    { return 3 }

func (r ycbcrRows) ReadRow(y int, row []uint8) {
	w := r.img.Rect.Dx()
	sy := r.img.Rect.Min.Y + y
	for x := 0; x < w; x++ {
		sx := r.img.Rect.Min.X + x
		yi := r.img.YOffset(sx, sy)
		ci := r.img.COffset(sx, sy)
		cr, cg, cb := color.YCbCrToRGB(r.img.Y[yi], r.img.Cb[ci], r.img.Cr[ci])
		d := row[x*3 : x*3+3 : x*3+3]
		d[0] = cb
		d[1] = cg
		d[2] = cr
	}
}

// newDestination allocates an output image for the given channel count:
// 1 channel maps to Gray (Gray16 when the source sample type was 16-bit) and 3
// or 4 channels map to NRGBA, opaque for 3.
func newDestination(channels, w, h int, deep bool) image.Image {
	r := image.Rect(0, 0, w, h)
	if channels == 1 {
		if deep {
			return image.NewGray16(r)
		}
		return image.NewGray(r)
	}
	return image.NewNRGBA(r)
}

// canHold reports whether dst's type can carry the given channel count, using
// the same matching rules as writeOutput. The driver checks this up front so a
// mismatch fails before any work is done.
func canHold(dst image.Image, channels int) bool {
	switch dst.(type) {
	case *image.Gray, *image.Gray16:
		return channels == 1
	case *image.NRGBA:
		return channels == 3 || channels == 4
	}
	return false
}

// writeOutput copies the flat interleaved output raster into dst using the
// same channel order the readers produce. It fails with ErrInvalidArgument when
// dst's type cannot carry the given channel count.
func writeOutput(flat []uint8, dst image.Image, w, h, channels int) error {
	switch d := dst.(type) {
	case *image.Gray:
		if channels != 1 {
			break
		}
		for y := 0; y < h; y++ {
			i := d.PixOffset(d.Rect.Min.X, d.Rect.Min.Y+y)
			copy(d.Pix[i:i+w], flat[y*w:(y+1)*w])
		}
		return nil
	case *image.Gray16:
		if channels != 1 {
			break
		}
		for y := 0; y < h; y++ {
			i := d.PixOffset(d.Rect.Min.X, d.Rect.Min.Y+y)
			for x := 0; x < w; x++ {
				v := flat[y*w+x]
				d.Pix[i+x*2] = v
				d.Pix[i+x*2+1] = v
			}
		}
		return nil
	case *image.NRGBA:
		switch channels {
		case 3:
			for y := 0; y < h; y++ {
				i := d.PixOffset(d.Rect.Min.X, d.Rect.Min.Y+y)
				for x := 0; x < w; x++ {
					s := flat[(y*w+x)*3 : (y*w+x)*3+3 : (y*w+x)*3+3]
					p := d.Pix[i+x*4 : i+x*4+4 : i+x*4+4]
					p[0] = s[2]
					p[1] = s[1]
					p[2] = s[0]
					p[3] = 0xff
				}
			}
			return nil
		case 4:
			for y := 0; y < h; y++ {
				i := d.PixOffset(d.Rect.Min.X, d.Rect.Min.Y+y)
				for x := 0; x < w; x++ {
					s := flat[(y*w+x)*4 : (y*w+x)*4+4 : (y*w+x)*4+4]
					p := d.Pix[i+x*4 : i+x*4+4 : i+x*4+4]
					p[0] = s[3]
					p[1] = s[2]
					p[2] = s[1]
					p[3] = s[0]
				}
			}
			return nil
		}
	}
	return fmt.Errorf("%w: destination %T cannot hold %d channels", ErrInvalidArgument, dst, channels)
}
