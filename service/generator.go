package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/staging"
)

// CatalogGenerator 生成白底棚拍风格的单件家具图
type CatalogGenerator interface {
	Generate(ctx context.Context, item, style string, baseWidth int) ([]byte, error)
}

// catalogItems 各房间每个图层默认生成的家具
var catalogItems = map[staging.RoomType][3]string{
	staging.LivingRoom: {"area rug", "coffee table", "sofa"},
	staging.Bedroom:    {"area rug", "nightstand", "bed with upholstered headboard"},
	staging.DiningRoom: {"area rug", "sideboard", "dining table with chairs"},
	staging.HomeOffice: {"area rug", "bookshelf", "desk with office chair"},
	staging.KidsRoom:   {"play rug", "toy chest", "single bed"},
	staging.Kitchen:    {"runner rug", "bar cart", "counter stools"},
	staging.Bathroom:   {"bath mat", "towel ladder", "wooden bench"},
}

// CatalogItem 返回房间中某个图层对应的家具名称
func CatalogItem(room staging.RoomType, role staging.LayerRole) string {
	items, ok := catalogItems[room]
	if !ok {
		items = catalogItems[staging.LivingRoom]
	}
	switch role {
	case staging.RoleRug:
		return items[0]
	case staging.RoleAux:
		return items[1]
	default:
		return items[2]
	}
}

// catalogPrompt 约束输出为便于抠图的单件白底产品图
func catalogPrompt(item, style string) string {
	s := strings.TrimSpace(style)
	if s == "" {
		s = "Standard"
	}
	bits := s
	if hint, ok := styleHints[strings.ToLower(s)]; ok {
		bits = hint
	}
	return fmt.Sprintf(
		"A single %s style (%s) %s, studio catalog photo on plain seamless white background, "+
			"no walls, no floor, no frame, no scene, no shadow, no people, full object visible, "+
			"correct proportions. High fidelity textures. Output should be ideal for background removal.",
		s, bits, item)
}

// catalogSize dall-e-3 只用方图，其余模型宽底图用横版
func catalogSize(model string, baseWidth int) string {
	if model == "dall-e-3" {
		return "1024x1024"
	}
	if baseWidth >= 1400 {
		return "1536x1024"
	}
	return "1024x1024"
}

// OpenAIGenerator 调用 images/generations 接口
type OpenAIGenerator struct {
	*openAIClient
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	return &OpenAIGenerator{newOpenAIClient(apiKey, baseURL, model, "generate")}
}

// WithHTTPClient 替换内部 HTTP 客户端
func (g *OpenAIGenerator) WithHTTPClient(c *http.Client) *OpenAIGenerator {
	if c != nil {
		g.httpc = c
	}
	return g
}

func (g *OpenAIGenerator) Generate(ctx context.Context, item, style string, baseWidth int) ([]byte, error) {
	if err := g.requireKey(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]string{
		"model":  g.model,
		"prompt": catalogPrompt(item, style),
		"size":   catalogSize(g.model, baseWidth),
	})
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	return g.post(ctx, "/images/generations", bytes.NewReader(payload), "application/json")
}

// FallbackGenerator 与 FallbackEditor 相同的降级规则
type FallbackGenerator struct {
	primary   CatalogGenerator
	secondary CatalogGenerator
}

func NewFallbackGenerator(primary, secondary CatalogGenerator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, secondary: secondary}
}

func (f *FallbackGenerator) Generate(ctx context.Context, item, style string, baseWidth int) ([]byte, error) {
	var secondary func() ([]byte, error)
	if f.secondary != nil {
		secondary = func() ([]byte, error) { return f.secondary.Generate(ctx, item, style, baseWidth) }
	}
	return withFallback("generate",
		func() ([]byte, error) { return f.primary.Generate(ctx, item, style, baseWidth) },
		secondary)
}

// NewCatalogGenerator 按配置创建生成器，未启用时返回 nil
func NewCatalogGenerator(editor *config.EditorConfig, cfg *config.GeneratorConfig) CatalogGenerator {
	if !cfg.Enabled {
		return nil
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-image-1"
	}
	primary := NewOpenAIGenerator(editor.OpenAIAPIKey, editor.OpenAIBaseURL, model)
	if cfg.FallbackModel == "" || cfg.FallbackModel == model {
		return primary
	}
	secondary := NewOpenAIGenerator(editor.OpenAIAPIKey, editor.OpenAIBaseURL, cfg.FallbackModel)
	return NewFallbackGenerator(primary, secondary)
}
