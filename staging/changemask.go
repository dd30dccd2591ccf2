package staging

import (
	"image"

	"github.com/alihoumani6/instastage-backend/config"
)

const (
	maskPreBlur        = 0.8
	maskAttenuation    = 0.92
	maskPolishBlur     = 0.6
	autocontrastCutoff = 1
)

// MaskParams 变化掩码参数
type MaskParams struct {
	Threshold int
	Grow      int
	Feather   float64
}

// DefaultMaskParams 返回 threshold=16, grow=3, feather=2.0
func DefaultMaskParams() MaskParams {
	return MaskParams{Threshold: 16, Grow: 3, Feather: 2.0}
}

// MaskParamsFromConfig 从暂存配置读取掩码参数
func MaskParamsFromConfig(cfg *config.StagingConfig) MaskParams {
	return MaskParams{Threshold: cfg.Threshold, Grow: cfg.Grow, Feather: cfg.Feather}
}

// ChangeMaskBuilder 计算原图与编辑图之间真实家具变化的羽化掩码
type ChangeMaskBuilder struct{}

func NewChangeMaskBuilder() *ChangeMaskBuilder {
	return &ChangeMaskBuilder{}
}

// Build 生成 0=保留原图、255=使用编辑图 的单通道掩码。
// 编辑图尺寸不同时先重采样到原图尺寸。
func (b *ChangeMaskBuilder) Build(original, edited image.Image, p MaskParams) (*image.Gray, error) {
	if isDegenerate(original) || isDegenerate(edited) {
		return nil, ErrDegenerateImage
	}
	orig := opaque(original)
	w, h := orig.Rect.Dx(), orig.Rect.Dy()
	edit := opaque(resampleTo(edited, w, h))

	diff := b.difference(orig, edit)
	b.autocontrast(diff, autocontrastCutoff)
	diff = blurGray(diff, maskPreBlur)

	mask := b.threshold(diff, p.Threshold)
	for i := 0; i < p.Grow; i++ {
		mask = rankFilter3(mask, true)
	}
	if p.Feather > 0 {
		mask = blurGray(mask, p.Feather)
	}

	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(float64(i) * maskAttenuation)
	}
	mapGray(mask, &lut)

	mask = rankFilter3(mask, false)
	return blurGray(mask, maskPolishBlur), nil
}

// difference 逐通道求绝对差并转换为亮度
func (b *ChangeMaskBuilder) difference(a, c *image.NRGBA) *image.Gray {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	absDiff := func(x, y uint8) uint8 {
		if x > y {
			return x - y
		}
		return y - x
	}
	for y := 0; y < h; y++ {
		pa := a.Pix[y*a.Stride:]
		pc := c.Pix[y*c.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			dst[x] = luma(absDiff(pa[i], pc[i]), absDiff(pa[i+1], pc[i+1]), absDiff(pa[i+2], pc[i+2]))
		}
	}
	return out
}

// autocontrast 裁掉直方图两端各 cutoff% 后线性拉伸到 0..255
func (b *ChangeMaskBuilder) autocontrast(g *image.Gray, cutoff int) {
	var hist [256]int
	n := 0
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[v]++
			n++
		}
	}

	cut := n * cutoff / 100
	for lo := 0; lo < 256 && cut > 0; lo++ {
		if cut > hist[lo] {
			cut -= hist[lo]
			hist[lo] = 0
		} else {
			hist[lo] -= cut
			cut = 0
		}
	}
	cut = n * cutoff / 100
	for hi := 255; hi >= 0 && cut > 0; hi-- {
		if cut > hist[hi] {
			cut -= hist[hi]
			hist[hi] = 0
		} else {
			hist[hi] -= cut
			cut = 0
		}
	}

	lo, hi := 0, 255
	for lo < 256 && hist[lo] == 0 {
		lo++
	}
	for hi >= 0 && hist[hi] == 0 {
		hi--
	}
	if hi <= lo {
		return
	}

	scale := 255.0 / float64(hi-lo)
	offset := -float64(lo) * scale
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(clamp(int(float64(i)*scale+offset), 0, 255))
	}
	mapGray(g, &lut)
}

func (b *ChangeMaskBuilder) threshold(g *image.Gray, t int) *image.Gray {
	out := cloneGray(g)
	for i, v := range out.Pix {
		if int(v) > t {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}
