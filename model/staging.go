package model

// StageResult 一次虚拟布置的结果
type StageResult struct {
	JobID          string `json:"job_id"`
	RoomType       string `json:"room_type"`
	FurnitureStyle string `json:"furniture_style"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	CacheKey       string `json:"cache_key"`
	StagedURL      string `json:"staged_url"`
	Cached         bool   `json:"cached"`
	Timestamp      int64  `json:"timestamp"`
}

// ComposeResult 家具图层合成结果
type ComposeResult struct {
	JobID       string   `json:"job_id"`
	RoomType    string   `json:"room_type"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	FloorY      int      `json:"floor_y"`
	MainXCenter *int     `json:"main_x_center,omitempty"`
	Layers      []string `json:"layers"` // 实际绘制的图层, 按绘制顺序
	Generated   []string `json:"generated,omitempty"`
	CacheKey    string   `json:"cache_key"`
	StagedURL   string   `json:"staged_url"`
	Timestamp   int64    `json:"timestamp"`
}

// StageResponse 布置响应
type StageResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *StageResult `json:"data,omitempty"`
}

// ComposeResponse 合成响应
type ComposeResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *ComposeResult `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
