package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Staging   StagingConfig   `mapstructure:"staging"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	Editor    EditorConfig    `mapstructure:"editor"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Cutout    CutoutConfig    `mapstructure:"cutout"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// StagingConfig 变化掩码与编辑调用参数
type StagingConfig struct {
	Threshold   int           `mapstructure:"threshold"`
	Grow        int           `mapstructure:"grow"`
	Feather     float64       `mapstructure:"feather"`
	EditTimeout time.Duration `mapstructure:"edit_timeout"`
	JPEGQuality int           `mapstructure:"jpeg_quality"`
}

// LayoutConfig 房间布局的默认宽度比例与主家具中心提示
type LayoutConfig struct {
	MainWidthFraction float64 `mapstructure:"main_width_fraction"`
	MainXCenter       *int    `mapstructure:"main_x_center"`
}

type EditorConfig struct {
	Provider       string `mapstructure:"provider"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	OpenAIBaseURL  string `mapstructure:"openai_base_url"`
	OpenAIModel    string `mapstructure:"openai_model"`
	OpenAIFallback string `mapstructure:"openai_fallback_model"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	GeminiModel    string `mapstructure:"gemini_model"`
}

// GeneratorConfig 缺少家具图层时的棚拍图生成，密钥与地址沿用 editor
type GeneratorConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Model         string `mapstructure:"model"`
	FallbackModel string `mapstructure:"fallback_model"`
}

type CutoutConfig struct {
	Iterations    int `mapstructure:"iterations"`
	BorderSize    int `mapstructure:"border_size"`
	MaxConcurrent int `mapstructure:"max_concurrent"`
	QueueTimeout  int `mapstructure:"queue_timeout"`
}

type AnalyzerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)
	bindEnv(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 15*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/webp"})

	v.SetDefault("staging.threshold", 16)
	v.SetDefault("staging.grow", 3)
	v.SetDefault("staging.feather", 2.0)
	v.SetDefault("staging.edit_timeout", 120*time.Second)
	v.SetDefault("staging.jpeg_quality", 92)

	v.SetDefault("layout.main_width_fraction", 0.48)

	v.SetDefault("editor.provider", "openai")
	v.SetDefault("editor.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("editor.openai_model", "gpt-image-1")
	v.SetDefault("editor.openai_fallback_model", "")
	v.SetDefault("editor.gemini_model", "gemini-2.5-flash-image")

	v.SetDefault("generator.enabled", true)
	v.SetDefault("generator.model", "gpt-image-1")
	v.SetDefault("generator.fallback_model", "dall-e-3")

	v.SetDefault("cutout.iterations", 5)
	v.SetDefault("cutout.border_size", 10)
	v.SetDefault("cutout.max_concurrent", 3)
	v.SetDefault("cutout.queue_timeout", 30)

	v.SetDefault("analyzer.enabled", false)
	v.SetDefault("analyzer.model", "gemini-2.5-flash")
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("editor.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("editor.gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("server.mode", "INSTASTAGE_MODE")
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 180 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      15 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/webp"},
		},
		Staging: DefaultStagingConfig(),
		Layout:  DefaultLayoutConfig(),
		Editor: EditorConfig{
			Provider:      "openai",
			OpenAIBaseURL: "https://api.openai.com/v1",
			OpenAIModel:   "gpt-image-1",
			GeminiModel:   "gemini-2.5-flash-image",
		},
		Generator: GeneratorConfig{
			Enabled:       true,
			Model:         "gpt-image-1",
			FallbackModel: "dall-e-3",
		},
		Cutout: CutoutConfig{
			Iterations:    5,
			BorderSize:    10,
			MaxConcurrent: 3,
			QueueTimeout:  30,
		},
		Analyzer: AnalyzerConfig{
			Enabled: false,
			Model:   "gemini-2.5-flash",
		},
	}
}

// DefaultStagingConfig 返回变化掩码的默认参数
func DefaultStagingConfig() StagingConfig {
	return StagingConfig{
		Threshold:   16,
		Grow:        3,
		Feather:     2.0,
		EditTimeout: 120 * time.Second,
		JPEGQuality: 92,
	}
}

// DefaultLayoutConfig 返回布局默认参数
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{MainWidthFraction: 0.48}
}
