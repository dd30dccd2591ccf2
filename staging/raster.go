package staging

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

var (
	// ErrDegenerateImage 图像宽或高为零
	ErrDegenerateImage = errors.New("staging: image has zero width or height")
	// ErrMaskSize 掩码尺寸与图像不一致
	ErrMaskSize = errors.New("staging: mask size does not match image")
)

func isDegenerate(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

// opaque 复制图像并将 alpha 置为 255，RGB 数值保持不变
func opaque(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// resampleTo 将图像重采样到指定尺寸，尺寸相同时仅复制
func resampleTo(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// luma 按 ITU-R 601-2 整数权重计算亮度
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// meanLuma 计算所有像素 RGB 的平均亮度，忽略 alpha
func meanLuma(img *image.NRGBA) float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			sum += uint64(luma(row[i], row[i+1], row[i+2]))
		}
	}
	return float64(sum) / float64(w*h)
}

func alphaChannel(img *image.NRGBA) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = src[x*4+3]
		}
	}
	return out
}

// blurGray 对单通道图像做高斯模糊，sigma<=0 时直接复制
func blurGray(g *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return cloneGray(g)
	}
	blurred := imaging.Blur(g, sigma)
	w, h := blurred.Rect.Dx(), blurred.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := blurred.Pix[y*blurred.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}

func cloneGray(g *image.Gray) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, g.Rect.Dx(), g.Rect.Dy()))
	for y := 0; y < out.Rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+out.Rect.Dx()], g.Pix[y*g.Stride:])
	}
	return out
}

// rankFilter3 对 3x3 邻域取最大或最小值，边界只统计图内像素
func rankFilter3(g *image.Gray, takeMax bool) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := g.Pix[y*g.Stride+x]
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					v := g.Pix[ny*g.Stride+nx]
					if (takeMax && v > best) || (!takeMax && v < best) {
						best = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = best
		}
	}
	return out
}

func mapGray(g *image.Gray, lut *[256]uint8) {
	for i, v := range g.Pix {
		g.Pix[i] = lut[v]
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampf(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
