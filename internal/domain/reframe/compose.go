package reframe

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Compositor renders single frames onto the vertical canvas.
type Compositor struct {
	opts Options
}

func NewCompositor(opts Options) *Compositor {
	return &Compositor{opts: opts.withDefaults()}
}

// Compose renders src according to d and reports the mode actually used.
// A crop decision falls back to letterbox when the frame scaled to canvas
// height is narrower than the canvas.
func (c *Compositor) Compose(src image.Image, d Decision) (*image.RGBA, Mode) {
	if d.Mode == ModeCrop {
		if out, ok := c.Crop(src, d.Speaker.X); ok {
			return out, ModeCrop
		}
	}
	return c.Letterbox(src), ModeLetterbox
}

// Crop scales src to canvas height and cuts a canvas-wide window centered
// on speakerX (in source pixels).
func (c *Compositor) Crop(src image.Image, speakerX float64) (*image.RGBA, bool) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tw, th := c.opts.Width, c.opts.Height
	if w == 0 || h == 0 {
		return nil, false
	}

	scale := float64(th) / float64(h)
	fw := int(math.Round(float64(w) * scale))
	if fw < tw {
		return nil, false
	}

	scaled := image.NewRGBA(image.Rect(0, 0, fw, th))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), src, b, draw.Src, nil)

	left := CropLeft(int(speakerX*scale), fw, tw)
	out := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(left, 0), draw.Src)
	return out, true
}

// CropLeft returns the left edge of a targetWidth window centered on
// centerX, clamped to [0, frameWidth-targetWidth].
func CropLeft(centerX, frameWidth, targetWidth int) int {
	return max(min(centerX-targetWidth/2, frameWidth-targetWidth), 0)
}

// Letterbox fits src to canvas width, centered vertically over a blurred,
// cover-scaled copy of itself.
func (c *Compositor) Letterbox(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tw, th := c.opts.Width, c.opts.Height
	out := image.NewRGBA(image.Rect(0, 0, tw, th))
	if w == 0 || h == 0 {
		return out
	}

	c.drawBackground(out, src)

	rh := int(float64(h) * float64(tw) / float64(w))
	top := (th - rh) / 2
	draw.BiLinear.Scale(out, image.Rect(0, top, tw, top+rh), src, b, draw.Src, nil)
	return out
}

// drawBackground fills dst with the centered canvas-sized crop of src
// cover-scaled and blurred. The blur runs on a downscaled copy.
func (c *Compositor) drawBackground(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	tw, th := float64(c.opts.Width), float64(c.opts.Height)
	ds := float64(c.opts.BackgroundDownscale)

	cover := math.Max(tw/w, th/h)
	bw, bh := w*cover/ds, h*cover/ds

	small := image.NewRGBA(image.Rect(0, 0, max(int(bw), 1), max(int(bh), 1)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, b, draw.Src, nil)
	blurred := imaging.Blur(small, c.opts.BlurSigma/ds)

	cw, ch := tw/ds, th/ds
	x0 := (bw - cw) / 2
	y0 := (bh - ch) / 2
	region := image.Rect(int(x0), int(y0), int(math.Ceil(x0+cw)), int(math.Ceil(y0+ch))).Intersect(blurred.Bounds())
	draw.BiLinear.Scale(dst, dst.Bounds(), blurred, region, draw.Src, nil)
}

// Blank is an all-black canvas.
func (c *Compositor) Blank() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, c.opts.Width, c.opts.Height))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}
