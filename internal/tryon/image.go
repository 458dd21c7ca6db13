package tryon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"

	"golang.org/x/image/draw"
)

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeAndCrop scales the image to cover the target resolution while
// preserving aspect ratio, then center-crops the overflow.
func resizeAndCrop(src image.Image, width, height int) *image.RGBA {
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()

	scale := float64(width) / float64(srcW)
	if s := float64(height) / float64(srcH); s > scale {
		scale = s
	}
	scaledW := int(float64(srcW)*scale + 0.5)
	scaledH := int(float64(srcH)*scale + 0.5)

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, srcBounds, draw.Src, nil)

	offsetX := (scaledW - width) / 2
	offsetY := (scaledH - height) / 2
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(offsetX, offsetY), draw.Src)
	return out
}

// resizeAndPadding scales the image to fit inside the target resolution and
// centers it on a white canvas.
func resizeAndPadding(src image.Image, width, height int) *image.RGBA {
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()

	scale := float64(width) / float64(srcW)
	if s := float64(height) / float64(srcH); s < scale {
		scale = s
	}
	scaledW := int(float64(srcW)*scale + 0.5)
	scaledH := int(float64(srcH)*scale + 0.5)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offsetX := (width - scaledW) / 2
	offsetY := (height - scaledH) / 2
	target := image.Rect(offsetX, offsetY, offsetX+scaledW, offsetY+scaledH)
	draw.CatmullRom.Scale(out, target, src, srcBounds, draw.Over, nil)
	return out
}

// blurMask softens mask edges with a separable box blur. The factor is the
// kernel width in pixels; even values are bumped to the next odd width so
// the kernel stays centered.
func blurMask(src *image.Gray, factor int) *image.Gray {
	if factor < 3 {
		return src
	}
	if factor%2 == 0 {
		factor++
	}
	half := factor / 2

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	horizontal := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count int
			for k := -half; k <= half; k++ {
				xx := x + k
				if xx < 0 || xx >= w {
					continue
				}
				sum += int(src.GrayAt(bounds.Min.X+xx, bounds.Min.Y+y).Y)
				count++
			}
			horizontal.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(sum / count)})
		}
	}

	out := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count int
			for k := -half; k <= half; k++ {
				yy := y + k
				if yy < 0 || yy >= h {
					continue
				}
				sum += int(horizontal.GrayAt(bounds.Min.X+x, bounds.Min.Y+yy).Y)
				count++
			}
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(sum / count)})
		}
	}
	return out
}

func toGray(src image.Image) *image.Gray {
	if gray, ok := src.(*image.Gray); ok {
		return gray
	}
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, src, bounds.Min, draw.Src)
	return gray
}
