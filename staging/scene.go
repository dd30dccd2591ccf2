package staging

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/alihoumani6/instastage-backend/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SceneLayers 三类家具剪影，为 nil 的图层会被跳过
type SceneLayers struct {
	Rug  image.Image
	Main image.Image
	Aux  image.Image
}

func (l SceneLayers) get(role LayerRole) image.Image {
	switch role {
	case RoleRug:
		return l.Rug
	case RoleMain:
		return l.Main
	case RoleAux:
		return l.Aux
	}
	return nil
}

type preparedLayer struct {
	role   LayerRole
	img    *image.NRGBA
	shadow *image.NRGBA
	pos    image.Point
}

// SceneCompositor 按房间布局把家具剪影合成到底图上
type SceneCompositor struct {
	planner *RoomLayoutPlanner
	tone    *ToneMatcher
	shadow  *ShadowSynthesizer
}

func NewSceneCompositor(planner *RoomLayoutPlanner) *SceneCompositor {
	return &SceneCompositor{
		planner: planner,
		tone:    NewToneMatcher(),
		shadow:  NewShadowSynthesizer(),
	}
}

// Compose 合成场景。各图层的调色、缩放和阴影并行准备，绘制严格按 rug、aux、main 顺序进行。
func (sc *SceneCompositor) Compose(ctx context.Context, base image.Image, roomType string, layers SceneLayers, floorYOverride, mainCenterHint *int) (*image.NRGBA, error) {
	if isDegenerate(base) {
		return nil, ErrDegenerateImage
	}
	startTime := time.Now()

	canvas := opaque(base)
	W, H := canvas.Rect.Dx(), canvas.Rect.Dy()
	spec := sc.planner.Plan(roomType, W, H, floorYOverride)

	prepared := make([]*preparedLayer, len(spec.Order))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range spec.Order {
		src := layers.get(role)
		if src == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var hint *int
			if role == RoleMain {
				hint = mainCenterHint
			}
			p, err := sc.prepare(canvas, src, role, spec, hint)
			if err != nil {
				return fmt.Errorf("prepare %s layer: %w", role, err)
			}
			prepared[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range prepared {
		if p == nil {
			continue
		}
		canvas = imaging.Overlay(canvas, p.shadow, p.pos, 1.0)
		canvas = imaging.Overlay(canvas, p.img, p.pos, 1.0)
		utils.Logger.Debug("layer placed",
			zap.String("role", p.role.String()),
			zap.Int("x", p.pos.X),
			zap.Int("y", p.pos.Y),
			zap.Int("width", p.img.Rect.Dx()),
			zap.Int("height", p.img.Rect.Dy()))
	}

	utils.Logger.Info("scene composed",
		zap.String("room_type", roomType),
		zap.String("keyword", spec.Keyword),
		zap.Int("floor_y", spec.FloorY),
		zap.Duration("duration", time.Since(startTime)))

	return opaque(canvas), nil
}

func (sc *SceneCompositor) prepare(base *image.NRGBA, src image.Image, role LayerRole, spec RoomPlacementSpec, hint *int) (*preparedLayer, error) {
	if isDegenerate(src) {
		return nil, ErrDegenerateImage
	}
	W, H := base.Rect.Dx(), base.Rect.Dy()
	placement := spec.Roles[role]

	toned, _ := sc.tone.Match(base, src)
	fitted := fitToWidth(toned, int(math.Round(float64(W)*placement.WidthFraction)))

	shadow, err := sc.shadow.ShadowUnder(fitted, placement.Shadow)
	if err != nil {
		return nil, err
	}

	w, h := fitted.Rect.Dx(), fitted.Rect.Dy()
	x := (W - w) / 2
	if hint != nil {
		x = int(float64(*hint) - float64(w)/2)
	}
	y := spec.FloorY - h + placement.OffsetY

	return &preparedLayer{
		role:   role,
		img:    fitted,
		shadow: shadow,
		pos:    image.Pt(clamp(x, 0, max(0, W-w)), clamp(y, 0, max(0, H-h))),
	}, nil
}

// fitToWidth 等比缩放到目标宽度
func fitToWidth(img *image.NRGBA, targetW int) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if targetW <= 0 || w <= 0 {
		return img
	}
	scale := float64(targetW) / float64(w)
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}
