package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/staging"
	"github.com/alihoumani6/instastage-backend/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	minFloorFrac = 0.5
	maxFloorFrac = 0.95
)

const analyzePrompt = "Classify this empty room photo. Return JSON with room_type (one of: " +
	"Living room, Bedroom, Dining room, Home office, Kids room, Kitchen, Bathroom) and " +
	"floor_y_frac, the vertical position of the visible floor line as a fraction of image height."

// RoomAnalysis 房间识别结果
type RoomAnalysis struct {
	RoomType   staging.RoomType `json:"room_type"`
	FloorYFrac float64          `json:"floor_y_frac"`
}

// FloorY 按图像高度换算地面线像素坐标
func (a *RoomAnalysis) FloorY(height int) int {
	return int(a.FloorYFrac*float64(height) + 0.5)
}

// RoomAnalyzer 使用 Gemini 识别房间类型与地面线
type RoomAnalyzer struct {
	client *genai.Client
	model  string
}

func NewRoomAnalyzer(ctx context.Context, apiKey string, cfg *config.AnalyzerConfig) (*RoomAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &RoomAnalyzer{client: client, model: cfg.Model}, nil
}

// Analyze 失败时返回 nil，调用方使用默认值继续
func (r *RoomAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) *RoomAnalysis {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
		{Text: analyzePrompt},
	}
	result, err := r.client.Models.GenerateContent(ctx, r.model, []*genai.Content{{Role: "user", Parts: parts}}, &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"room_type":    {Type: genai.TypeString},
				"floor_y_frac": {Type: genai.TypeNumber},
			},
			Required: []string{"room_type", "floor_y_frac"},
		},
	})
	if err != nil {
		utils.Logger.Warn("room analysis failed", zap.Error(err))
		return nil
	}

	analysis, err := parseRoomAnalysis(result.Text())
	if err != nil {
		utils.Logger.Warn("room analysis unparseable", zap.Error(err))
		return nil
	}
	utils.Logger.Info("room analyzed",
		zap.String("room_type", string(analysis.RoomType)),
		zap.Float64("floor_y_frac", analysis.FloorYFrac))
	return analysis
}

// parseRoomAnalysis 解析模型输出，房间类型归一化，地面比例夹到 [0.5, 0.95]
func parseRoomAnalysis(text string) (*RoomAnalysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty analysis")
	}

	var raw struct {
		RoomType   string   `json:"room_type"`
		FloorYFrac *float64 `json:"floor_y_frac"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if raw.FloorYFrac == nil {
		return nil, errors.New("analysis missing floor_y_frac")
	}

	frac := min(max(*raw.FloorYFrac, minFloorFrac), maxFloorFrac)
	return &RoomAnalysis{
		RoomType:   staging.NormalizeRoom(raw.RoomType),
		FloorYFrac: frac,
	}, nil
}
