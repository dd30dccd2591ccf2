package staging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIdenticalImagesYieldsZeroMask(t *testing.T) {
	b := NewChangeMaskBuilder()
	for name, img := range map[string]*image.NRGBA{
		"uniform gray": uniform(100, 100, gray),
		"noise":        noise(64, 48, 7),
	} {
		t.Run(name, func(t *testing.T) {
			mask, err := b.Build(img, img, DefaultMaskParams())
			require.NoError(t, err)
			require.Equal(t, img.Bounds().Size(), mask.Bounds().Size())
			for _, v := range grayPixels(mask) {
				require.Zero(t, v)
			}
		})
	}
}

func TestBuildInsertedSquare(t *testing.T) {
	original := uniform(256, 256, black)
	edited := uniform(256, 256, black)
	square := image.Rect(100, 100, 120, 120)
	fillRect(edited, square, white)

	mask, err := NewChangeMaskBuilder().Build(original, edited, DefaultMaskParams())
	require.NoError(t, err)

	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			v := mask.GrayAt(x, y).Y
			assert.LessOrEqual(t, int(v), 235)

			if image.Pt(x, y).In(square) {
				require.NotZero(t, v, "pixel (%d,%d) inside inserted square", x, y)
				continue
			}
			dx := max(square.Min.X-x, x-(square.Max.X-1), 0)
			dy := max(square.Min.Y-y, y-(square.Max.Y-1), 0)
			if max(dx, dy) > 12 {
				require.Zero(t, v, "pixel (%d,%d) is %d px from the square", x, y, max(dx, dy))
			}
		}
	}
}

func TestBuildIgnoresUniformRelight(t *testing.T) {
	original := noise(80, 60, 3)
	edited := image.NewNRGBA(original.Rect)
	copy(edited.Pix, original.Pix)
	for i := 0; i < len(edited.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			if edited.Pix[i+ch] < 251 {
				edited.Pix[i+ch] += 4
			} else {
				edited.Pix[i+ch] -= 4
			}
		}
	}

	mask, err := NewChangeMaskBuilder().Build(original, edited, DefaultMaskParams())
	require.NoError(t, err)
	assert.Zero(t, Coverage(mask))
}

func TestBuildIsDeterministic(t *testing.T) {
	original := noise(90, 70, 11)
	edited := noise(90, 70, 11)
	fillRect(edited, image.Rect(30, 20, 50, 45), color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	b := NewChangeMaskBuilder()
	first, err := b.Build(original, edited, DefaultMaskParams())
	require.NoError(t, err)
	second, err := b.Build(original, edited, DefaultMaskParams())
	require.NoError(t, err)
	assert.Equal(t, grayPixels(first), grayPixels(second))
}

func TestBuildResamplesEditedToOriginalSize(t *testing.T) {
	original := uniform(120, 80, gray)
	edited := uniform(240, 160, gray)

	mask, err := NewChangeMaskBuilder().Build(original, edited, DefaultMaskParams())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 80), mask.Bounds())
	assert.Zero(t, Coverage(mask))
}

func TestBuildRejectsDegenerateImages(t *testing.T) {
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 10))
	_, err := NewChangeMaskBuilder().Build(empty, uniform(10, 10, gray), DefaultMaskParams())
	assert.ErrorIs(t, err, ErrDegenerateImage)

	_, err = NewChangeMaskBuilder().Build(uniform(10, 10, gray), nil, DefaultMaskParams())
	assert.ErrorIs(t, err, ErrDegenerateImage)
}
