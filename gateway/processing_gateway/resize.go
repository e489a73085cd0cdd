package processing_gateway

import (
	"image"

	"golang.org/x/image/draw"
)

// fitDims computes the output size for an aspect-preserving resize inside
// the (bw, bh) bounds. A zero bound leaves that axis unconstrained. The
// image is never enlarged.
func fitDims(ow, oh, bw, bh int) (int, int) {
	scale := 1.0
	if bw > 0 {
		if s := float64(bw) / float64(ow); s < scale {
			scale = s
		}
	}
	if bh > 0 {
		if s := float64(bh) / float64(oh); s < scale {
			scale = s
		}
	}
	nw := int(float64(ow)*scale + 0.5)
	nh := int(float64(oh)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// scaleTo resamples img to exactly (w, h).
func scaleTo(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// coverCrop resamples img to exactly (w, h), cropping the source
// centrally so the output is filled without distortion.
func coverCrop(img image.Image, w, h int) *image.RGBA {
	bounds := img.Bounds()
	ow, oh := bounds.Dx(), bounds.Dy()

	targetAspect := float64(w) / float64(h)
	srcAspect := float64(ow) / float64(oh)

	cropW, cropH := ow, oh
	if srcAspect > targetAspect {
		cropW = int(float64(oh)*targetAspect + 0.5)
	} else if srcAspect < targetAspect {
		cropH = int(float64(ow)/targetAspect + 0.5)
	}
	x0 := bounds.Min.X + (ow-cropW)/2
	y0 := bounds.Min.Y + (oh-cropH)/2
	srcRect := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, srcRect, draw.Src, nil)
	return dst
}

// orient applies the EXIF orientation transform (values 2 through 8)
// before any resize.
func orient(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var dst *image.RGBA
	switch orientation {
	case 3, 4:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	default:
		// Remaining orientations transpose the axes.
		if orientation == 2 {
			dst = image.NewRGBA(image.Rect(0, 0, w, h))
		} else {
			dst = image.NewRGBA(image.Rect(0, 0, h, w))
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch orientation {
			case 2: // mirror horizontal
				dst.Set(w-1-x, y, c)
			case 3: // rotate 180
				dst.Set(w-1-x, h-1-y, c)
			case 4: // mirror vertical
				dst.Set(x, h-1-y, c)
			case 5: // mirror horizontal + rotate 270 CW
				dst.Set(y, x, c)
			case 6: // rotate 90 CW
				dst.Set(h-1-y, x, c)
			case 7: // mirror horizontal + rotate 90 CW
				dst.Set(h-1-y, w-1-x, c)
			case 8: // rotate 270 CW
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
