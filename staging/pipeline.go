package staging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/utils"
	"go.uber.org/zap"
)

// RoomType 归一化后的房间类型
type RoomType string

const (
	LivingRoom RoomType = "Living room"
	Bedroom    RoomType = "Bedroom"
	DiningRoom RoomType = "Dining room"
	HomeOffice RoomType = "Home office"
	KidsRoom   RoomType = "Kids room"
	Kitchen    RoomType = "Kitchen"
	Bathroom   RoomType = "Bathroom"
)

var roomAliases = []struct {
	keyword string
	room    RoomType
}{
	{"living room", LivingRoom},
	{"living", LivingRoom},
	{"bedroom", Bedroom},
	{"dining room", DiningRoom},
	{"dining", DiningRoom},
	{"home office", HomeOffice},
	{"office", HomeOffice},
	{"kids room", KidsRoom},
	{"kids", KidsRoom},
	{"kitchen", Kitchen},
	{"bathroom", Bathroom},
	{"bath", Bathroom},
}

// NormalizeRoom 不区分大小写地按子串匹配房间类型，未命中时返回 Living room
func NormalizeRoom(roomType string) RoomType {
	rt := strings.ToLower(strings.TrimSpace(roomType))
	if rt == "" {
		return LivingRoom
	}
	for _, a := range roomAliases {
		if strings.Contains(rt, a.keyword) {
			return a.room
		}
	}
	return LivingRoom
}

// Stager 先让编辑服务自由布置，再用变化掩码只保留家具像素
type Stager struct {
	editor     Editor
	masks      *ChangeMaskBuilder
	compositor *Compositor
	params     MaskParams
	timeout    time.Duration
	quality    int
}

func NewStager(editor Editor, cfg *config.StagingConfig) *Stager {
	defaults := config.DefaultStagingConfig()
	timeout := cfg.EditTimeout
	if timeout <= 0 {
		timeout = defaults.EditTimeout
	}
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = defaults.JPEGQuality
	}
	return &Stager{
		editor:     editor,
		masks:      NewChangeMaskBuilder(),
		compositor: NewCompositor(),
		params:     MaskParamsFromConfig(cfg),
		timeout:    timeout,
		quality:    quality,
	}
}

// Stage 返回与 base 同尺寸的暂存结果，变化区域之外的像素与 base 完全一致。
// 编辑服务失败或超时时直接返回其错误，不产生部分结果。
func (s *Stager) Stage(ctx context.Context, base image.Image, roomType, style string) (*image.NRGBA, error) {
	if isDegenerate(base) {
		return nil, ErrDegenerateImage
	}
	room := NormalizeRoom(roomType)
	src := opaque(base)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode base image: %w", err)
	}

	editCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	raw, err := s.editor.Edit(editCtx, EditRequest{
		Image:    buf.Bytes(),
		MIMEType: "image/jpeg",
		RoomType: string(room),
		Style:    style,
	})
	if err != nil {
		utils.Logger.Error("edit service failed",
			zap.String("room_type", string(room)),
			zap.String("style", style),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
		return nil, err
	}

	edited, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode edited image: %w", err)
	}
	if eb := edited.Bounds(); eb.Dx() != w || eb.Dy() != h {
		utils.Logger.Info("resampling edited image",
			zap.Int("edited_width", eb.Dx()),
			zap.Int("edited_height", eb.Dy()),
			zap.Int("width", w),
			zap.Int("height", h))
		edited = resampleTo(edited, w, h)
	}

	mask, err := s.masks.Build(src, edited, s.params)
	if err != nil {
		return nil, fmt.Errorf("build change mask: %w", err)
	}
	out, err := s.compositor.Composite(src, edited, mask)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	utils.Logger.Info("image staged",
		zap.String("room_type", string(room)),
		zap.String("style", style),
		zap.Float64("changed_ratio", Coverage(mask)),
		zap.Duration("duration", time.Since(startTime)))

	return out, nil
}

// Coverage 返回掩码中非零像素的比例
func Coverage(mask *image.Gray) float64 {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	n := 0
	for y := 0; y < h; y++ {
		for _, v := range mask.Pix[y*mask.Stride : y*mask.Stride+w] {
			if v > 0 {
				n++
			}
		}
	}
	return float64(n) / float64(w*h)
}
