package staging

import (
	"image"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// ShadowSynthesizer 根据剪影生成地面接触阴影
type ShadowSynthesizer struct{}

func NewShadowSynthesizer() *ShadowSynthesizer {
	return &ShadowSynthesizer{}
}

// ShadowUnder 返回与 layer 同尺寸的黑色阴影层，alpha 不超过 p.Opacity
func (s *ShadowSynthesizer) ShadowUnder(layer image.Image, p ShadowParams) (*image.NRGBA, error) {
	if isDegenerate(layer) {
		return nil, ErrDegenerateImage
	}
	src := imaging.Clone(layer)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	silhouette := alphaChannel(src)

	// 垂直压扁剪影，模拟投在地面上的阴影
	sh := max(1, int(float64(h)*p.Squash))
	squashed := image.NewGray(image.Rect(0, 0, w, sh))
	xdraw.BiLinear.Scale(squashed, squashed.Bounds(), silhouette, silhouette.Bounds(), xdraw.Src, nil)
	squashed = blurGray(squashed, float64(p.Blur))

	opacity := clamp(p.Opacity, 0, 255)
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(float64(i) * float64(opacity) / 255.0)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	top := h - min(sh, h)
	for y := 0; y < min(sh, h); y++ {
		row := squashed.Pix[y*squashed.Stride:]
		dst := out.Pix[(top+y)*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x*4+3] = lut[row[x]]
		}
	}
	return out, nil
}
