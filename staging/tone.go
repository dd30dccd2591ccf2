package staging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	toneTargetMin   = 60.0
	toneTargetMax   = 190.0
	toneFactorMin   = 0.7
	toneFactorMax   = 1.3
	toneContrastMul = 1.04
)

// ToneMatcher 调整剪影的亮度与对比度以贴合场景光照
type ToneMatcher struct{}

func NewToneMatcher() *ToneMatcher {
	return &ToneMatcher{}
}

// BrightnessFactor 按场景与剪影平均亮度计算亮度系数，结果在 [0.7, 1.3]
func BrightnessFactor(baseMean, cutoutMean float64) float64 {
	target := clampf(baseMean, toneTargetMin, toneTargetMax)
	return clampf(target/cutoutMean, toneFactorMin, toneFactorMax)
}

// Match 返回调整后的剪影及实际使用的亮度系数，alpha 通道保持不变
func (tm *ToneMatcher) Match(base, cutout image.Image) (*image.NRGBA, float64) {
	cut := imaging.Clone(cutout)
	cutMean := meanLuma(cut)
	if cutMean <= 0 {
		return cut, 1.0
	}
	factor := BrightnessFactor(meanLuma(imaging.Clone(base)), cutMean)

	brightened := imaging.AdjustFunc(cut, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: trunc8(float64(c.R) * factor),
			G: trunc8(float64(c.G) * factor),
			B: trunc8(float64(c.B) * factor),
			A: c.A,
		}
	})

	mean := float64(int(meanLuma(brightened) + 0.5))
	out := imaging.AdjustFunc(brightened, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: trunc8(mean + (float64(c.R)-mean)*toneContrastMul),
			G: trunc8(mean + (float64(c.G)-mean)*toneContrastMul),
			B: trunc8(mean + (float64(c.B)-mean)*toneContrastMul),
			A: c.A,
		}
	})
	return out, factor
}

// trunc8 截断取整后限制到 [0, 255]
func trunc8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
