package staging

import (
	"image"
)

// Compositor 通过掩码把编辑图混合到原图上，掩码为零处逐位保留原图
type Compositor struct{}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Composite 返回与 base 同尺寸的不透明图像
func (c *Compositor) Composite(base, edited image.Image, mask *image.Gray) (*image.NRGBA, error) {
	if isDegenerate(base) || isDegenerate(edited) {
		return nil, ErrDegenerateImage
	}
	out := opaque(base)
	w, h := out.Rect.Dx(), out.Rect.Dy()
	if mask == nil || mask.Rect.Dx() != w || mask.Rect.Dy() != h {
		return nil, ErrMaskSize
	}
	edit := resampleTo(edited, w, h)

	for y := 0; y < h; y++ {
		m := mask.Pix[y*mask.Stride:]
		dst := out.Pix[y*out.Stride:]
		src := edit.Pix[y*edit.Stride:]
		for x := 0; x < w; x++ {
			a := uint32(m[x])
			if a == 0 {
				continue
			}
			i := x * 4
			for ch := 0; ch < 3; ch++ {
				dst[i+ch] = uint8((uint32(dst[i+ch])*(255-a) + uint32(src[i+ch])*a + 127) / 255)
			}
		}
	}
	return out, nil
}
