package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/model"
	"github.com/alihoumani6/instastage-backend/service"
	"github.com/alihoumani6/instastage-backend/staging"
	"github.com/alihoumani6/instastage-backend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const stagedRoute = "/api/v1/staged/"

// ResultCache 已布置结果的缓存
type ResultCache interface {
	GetStaged(ctx context.Context, key string) ([]byte, error)
	SetStaged(ctx context.Context, key string, jpegBytes []byte) error
}

// CutoutMatter 为不透明的家具图生成透明背景
type CutoutMatter interface {
	Matte(ctx context.Context, layer image.Image) (*image.NRGBA, error)
}

// ObstacleLocator 为主家具寻找空位
type ObstacleLocator interface {
	MainCenter(base image.Image, floorY, itemWidth int) (int, error)
}

// RoomAnalyzer 识别房间类型与地面线，失败返回 nil
type RoomAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) *service.RoomAnalysis
}

type StageHandler struct {
	cfg       *config.Config
	stager    *staging.Stager
	scene     *staging.SceneCompositor
	planner   *staging.RoomLayoutPlanner
	cache     ResultCache
	cutout    CutoutMatter
	obstacles ObstacleLocator
	analyzer  RoomAnalyzer
	generator service.CatalogGenerator
}

func NewStageHandler(cfg *config.Config, stager *staging.Stager, planner *staging.RoomLayoutPlanner, cache ResultCache) *StageHandler {
	return &StageHandler{
		cfg:     cfg,
		stager:  stager,
		scene:   staging.NewSceneCompositor(planner),
		planner: planner,
		cache:   cache,
	}
}

func (h *StageHandler) WithCutout(c CutoutMatter) *StageHandler {
	h.cutout = c
	return h
}

func (h *StageHandler) WithObstacles(o ObstacleLocator) *StageHandler {
	h.obstacles = o
	return h
}

func (h *StageHandler) WithAnalyzer(a RoomAnalyzer) *StageHandler {
	h.analyzer = a
	return h
}

// WithGenerator 设置后 Compose 会为缺少的图层生成家具图
func (h *StageHandler) WithGenerator(g service.CatalogGenerator) *StageHandler {
	h.generator = g
	return h
}

// Stage 处理整图虚拟布置
func (h *StageHandler) Stage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "请上传图片文件", err)
		return
	}
	in, err := h.readUpload(fh)
	if err != nil {
		badRequest(c, "图片无效", err)
		return
	}

	ctx := c.Request.Context()
	roomType := roomField(c)
	if roomType == "" {
		if a := h.analyze(ctx, in); a != nil {
			roomType = string(a.RoomType)
		}
	}
	room := string(staging.NormalizeRoom(roomType))
	style := strings.TrimSpace(c.DefaultPostForm("furniture_style", "standard"))

	jobID := utils.GenerateJobID()
	key := utils.StagedKey(utils.BytesMD5(in.data), room, style)
	bounds := in.img.Bounds()
	result := &model.StageResult{
		JobID:          jobID,
		RoomType:       room,
		FurnitureStyle: style,
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		CacheKey:       key,
		StagedURL:      stagedRoute + key,
		Timestamp:      time.Now().Unix(),
	}

	utils.Logger.Info("stage requested",
		zap.String("job_id", jobID),
		zap.String("room_type", room),
		zap.String("style", style),
		zap.Int64("size", fh.Size))

	if h.cachedResult(ctx, key) {
		utils.Logger.Info("cache hit", zap.String("cache_key", key))
		result.Cached = true
		c.JSON(http.StatusOK, model.StageResponse{Success: true, Message: "处理成功（来自缓存）", Data: result})
		return
	}

	staged, err := h.stager.Stage(ctx, in.img, room, style)
	if err != nil {
		h.fail(c, jobID, err)
		return
	}
	data, stored, err := h.store(ctx, key, staged)
	if err != nil {
		h.fail(c, jobID, err)
		return
	}
	if !stored {
		inlineImage(c, jobID, room, data)
		return
	}

	c.JSON(http.StatusOK, model.StageResponse{Success: true, Message: "处理成功", Data: result})
}

// Compose 将上传的家具图层按房间布局合成到底图
func (h *StageHandler) Compose(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "请上传图片文件", err)
		return
	}
	base, err := h.readUpload(fh)
	if err != nil {
		badRequest(c, "图片无效", err)
		return
	}

	floorY, err := optionalInt(c, "floor_y")
	if err != nil {
		badRequest(c, "floor_y 参数无效", err)
		return
	}
	mainX, err := optionalInt(c, "main_x_center")
	if err != nil {
		badRequest(c, "main_x_center 参数无效", err)
		return
	}
	avoid, _ := strconv.ParseBool(c.DefaultPostForm("avoid_obstacles", "false"))
	generate, err := strconv.ParseBool(c.DefaultPostForm("generate_missing", "true"))
	if err != nil {
		badRequest(c, "generate_missing 参数无效", err)
		return
	}
	style := strings.TrimSpace(c.DefaultPostForm("furniture_style", "standard"))

	ctx := c.Request.Context()
	jobID := utils.GenerateJobID()

	layers, err := h.readLayers(ctx, c)
	if err != nil {
		if errors.Is(err, errInvalidUpload) {
			badRequest(c, "家具图层无效", err)
			return
		}
		h.fail(c, jobID, err)
		return
	}

	roomType := roomField(c)
	W, H := base.img.Bounds().Dx(), base.img.Bounds().Dy()
	if floorY == nil || roomType == "" {
		if a := h.analyze(ctx, base); a != nil {
			if roomType == "" {
				roomType = string(a.RoomType)
			}
			if floorY == nil {
				fy := a.FloorY(H)
				floorY = &fy
			}
		}
	}
	room := string(staging.NormalizeRoom(roomType))

	var generated []string
	if generate && h.generator != nil {
		generated, err = h.generateMissing(ctx, &layers, staging.RoomType(room), style, W)
		if err != nil {
			h.fail(c, jobID, err)
			return
		}
	}
	names := layerNames(layers)
	if len(names) == 0 {
		badRequest(c, "至少需要上传 rug、main、aux 中的一个图层", nil)
		return
	}

	if mainX == nil {
		mainX = h.cfg.Layout.MainXCenter
	}
	if mainX == nil && avoid && layers.Main != nil && h.obstacles != nil {
		spec := h.planner.Plan(room, W, H, floorY)
		mainW := int(math.Round(float64(W) * spec.Roles[staging.RoleMain].WidthFraction))
		if x, err := h.obstacles.MainCenter(base.img, spec.FloorY, mainW); err != nil {
			utils.Logger.Warn("obstacle detection failed, centering main piece", zap.Error(err))
		} else {
			mainX = &x
		}
	}

	out, err := h.scene.Compose(ctx, base.img, room, layers, floorY, mainX)
	if err != nil {
		h.fail(c, jobID, err)
		return
	}
	key := "compose-" + jobID
	data, stored, err := h.store(ctx, key, out)
	if err != nil {
		h.fail(c, jobID, err)
		return
	}

	spec := h.planner.Plan(room, W, H, floorY)
	if !stored {
		c.Header("X-Floor-Y", strconv.Itoa(spec.FloorY))
		inlineImage(c, jobID, room, data)
		return
	}
	c.JSON(http.StatusOK, model.ComposeResponse{
		Success: true,
		Message: "合成成功",
		Data: &model.ComposeResult{
			JobID:       jobID,
			RoomType:    room,
			Width:       W,
			Height:      H,
			FloorY:      spec.FloorY,
			MainXCenter: mainX,
			Layers:      names,
			Generated:   generated,
			CacheKey:    key,
			StagedURL:   stagedRoute + key,
			Timestamp:   time.Now().Unix(),
		},
	})
}

// GetStaged 返回缓存中的 JPEG
func (h *StageHandler) GetStaged(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		badRequest(c, "key 参数缺失", nil)
		return
	}
	if h.cache == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Success: false, Message: "缓存不可用"})
		return
	}

	data, err := h.cache.GetStaged(c.Request.Context(), key)
	if err != nil {
		utils.Logger.Error("failed to get staged result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "查询失败",
			Error:   err.Error(),
		})
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "未找到该布置结果",
		})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

var drawOrder = []staging.LayerRole{staging.RoleRug, staging.RoleAux, staging.RoleMain}

// layerSlot 返回图层在 SceneLayers 中的位置
func layerSlot(layers *staging.SceneLayers, role staging.LayerRole) *image.Image {
	switch role {
	case staging.RoleRug:
		return &layers.Rug
	case staging.RoleAux:
		return &layers.Aux
	default:
		return &layers.Main
	}
}

// layerNames 按绘制顺序列出已有的图层
func layerNames(layers staging.SceneLayers) []string {
	var names []string
	for _, role := range drawOrder {
		if *layerSlot(&layers, role) != nil {
			names = append(names, role.String())
		}
	}
	return names
}

// readLayers 读取可选的 rug/main/aux 图层
func (h *StageHandler) readLayers(ctx context.Context, c *gin.Context) (staging.SceneLayers, error) {
	var layers staging.SceneLayers
	for _, role := range drawOrder {
		fh, err := c.FormFile(role.String())
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			return layers, fmt.Errorf("%w: %s: %v", errInvalidUpload, role, err)
		}
		img, err := h.readLayer(ctx, fh)
		if err != nil {
			return layers, err
		}
		*layerSlot(&layers, role) = img
	}
	return layers, nil
}

// generateMissing 并发生成缺少的图层并抠图，返回按绘制顺序排列的生成图层名
func (h *StageHandler) generateMissing(ctx context.Context, layers *staging.SceneLayers, room staging.RoomType, style string, baseWidth int) ([]string, error) {
	var missing []staging.LayerRole
	for _, role := range drawOrder {
		if *layerSlot(layers, role) == nil {
			missing = append(missing, role)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	results := make([]image.Image, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range missing {
		g.Go(func() error {
			item := service.CatalogItem(room, role)
			raw, err := h.generator.Generate(gctx, item, style, baseWidth)
			if err != nil {
				return fmt.Errorf("generate %s: %w", role, err)
			}
			img, _, err := image.Decode(bytes.NewReader(raw))
			if err != nil {
				return fmt.Errorf("decode generated %s: %w", role, err)
			}
			if h.cutout != nil {
				matted, err := h.cutout.Matte(gctx, img)
				if err != nil {
					return fmt.Errorf("matte generated %s: %w", role, err)
				}
				img = matted
			}
			utils.Logger.Info("layer generated",
				zap.String("role", role.String()),
				zap.String("item", item),
				zap.String("style", style))
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(missing))
	for i, role := range missing {
		*layerSlot(layers, role) = results[i]
		names[i] = role.String()
	}
	return names, nil
}

func (h *StageHandler) readLayer(ctx context.Context, fh *multipart.FileHeader) (image.Image, error) {
	in, err := h.readUpload(fh)
	if err != nil {
		return nil, err
	}
	if h.cutout == nil {
		return in.img, nil
	}
	return h.cutout.Matte(ctx, in.img)
}

func (h *StageHandler) analyze(ctx context.Context, in *upload) *service.RoomAnalysis {
	if h.analyzer == nil {
		return nil
	}
	return h.analyzer.Analyze(ctx, in.data, in.mimeType)
}

func (h *StageHandler) cachedResult(ctx context.Context, key string) bool {
	if h.cache == nil {
		return false
	}
	data, err := h.cache.GetStaged(ctx, key)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
		return false
	}
	return data != nil
}

// store 编码为 JPEG 写入缓存，返回编码结果以及是否已写入缓存
func (h *StageHandler) store(ctx context.Context, key string, img image.Image) ([]byte, bool, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: h.jpegQuality()}); err != nil {
		return nil, false, err
	}
	if h.cache == nil {
		return buf.Bytes(), false, nil
	}
	if err := h.cache.SetStaged(ctx, key, buf.Bytes()); err != nil {
		utils.Logger.Warn("failed to set cache", zap.String("cache_key", key), zap.Error(err))
		return buf.Bytes(), false, nil
	}
	return buf.Bytes(), true, nil
}

// inlineImage 结果没有进入缓存时直接返回 JPEG
func inlineImage(c *gin.Context, jobID, room string, data []byte) {
	c.Header("X-Job-ID", jobID)
	c.Header("X-Room-Type", room)
	c.Header("X-Cache", "disabled")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (h *StageHandler) jpegQuality() int {
	q := h.cfg.Staging.JPEGQuality
	if q <= 0 || q > 100 {
		return config.DefaultStagingConfig().JPEGQuality
	}
	return q
}

// fail 按错误类型映射 HTTP 状态码
func (h *StageHandler) fail(c *gin.Context, jobID string, err error) {
	status := http.StatusInternalServerError
	message := "图片处理失败"

	var se *staging.ServiceError
	switch {
	case errors.Is(err, staging.ErrDegenerateImage), errors.Is(err, staging.ErrMaskSize):
		status = http.StatusBadRequest
		message = "图片尺寸无效"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "编辑服务超时"
	case errors.As(err, &se):
		status = http.StatusBadGateway
		message = "编辑服务失败"
	}

	utils.Logger.Error("staging failed",
		zap.String("job_id", jobID),
		zap.Int("status", status),
		zap.Error(err))
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	resp := model.ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// roomField 读取 room_type，"auto" 视为未填写
func roomField(c *gin.Context) string {
	rt := strings.TrimSpace(c.PostForm("room_type"))
	if strings.EqualFold(rt, "auto") {
		return ""
	}
	return rt
}

func optionalInt(c *gin.Context, field string) (*int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
