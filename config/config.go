// Package config 负责加载服务与游戏配置：YAML 文件、.env 与环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"friendstack/stack"
)

// 环境变量覆盖项
const (
	EnvAddr     = "FRIENDSTACK_ADDR"
	EnvLogFile  = "FRIENDSTACK_LOG_FILE"
	EnvLogLevel = "FRIENDSTACK_LOG_LEVEL"
	EnvFidelity = "FRIENDSTACK_FIDELITY"
	EnvTickRate = "FRIENDSTACK_TICK_RATE"
	EnvSeed     = "FRIENDSTACK_SEED"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Game   stack.Config `yaml:"game"`
}

type ServerConfig struct {
	Addr             string `yaml:"addr"`
	StaticDir        string `yaml:"static_dir"`
	DefaultTable     string `yaml:"default_table"`
	Seed             int64  `yaml:"seed"`                // 0 表示按时间取种子
	InputBuffer      int    `yaml:"input_buffer"`        // 每桌入站输入通道容量
	MaxInputsPerTick int    `yaml:"max_inputs_per_tick"` // 每 tick 最多处理的输入数
}

// LogConfig 日志文件滚动策略（lumberjack）与级别
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"` // 同时输出到 stderr
}

// Default 默认配置
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:             ":8080",
			StaticDir:        "web",
			DefaultTable:     "table-1",
			InputBuffer:      256,
			MaxInputsPerTick: 8,
		},
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Game: stack.DefaultConfig(),
	}
}

// Load 以默认值为底读取 YAML（path 为空时跳过），再应用环境变量并校验
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv 把 .env 文件载入进程环境，文件不存在不算错误
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvFidelity); v != "" {
		cfg.Game.Fidelity = v
	}
	if v := os.Getenv(EnvTickRate); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvTickRate, v, err)
		}
		cfg.Game.TickRate = n
	}
	if v := os.Getenv(EnvSeed); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvSeed, v, err)
		}
		cfg.Server.Seed = n
	}
	return nil
}

// Validate 校验服务、日志与游戏配置
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is empty")
	}
	if c.Server.InputBuffer <= 0 {
		return fmt.Errorf("config: server.input_buffer must be > 0, got %d", c.Server.InputBuffer)
	}
	if c.Server.MaxInputsPerTick <= 0 {
		return fmt.Errorf("config: server.max_inputs_per_tick must be > 0, got %d", c.Server.MaxInputsPerTick)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return c.Game.Validate()
}
