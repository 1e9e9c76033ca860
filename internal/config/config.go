package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Capture struct {
	CameraVideoPort int `mapstructure:"camera_video_port"`
	CameraAudioPort int `mapstructure:"camera_audio_port"`
	ScreenVideoPort int `mapstructure:"screen_video_port"`
	ScreenAudioPort int `mapstructure:"screen_audio_port"`
}

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	Secret        string        `mapstructure:"secret"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RelayURL      string        `mapstructure:"relay_url"`
	JoinTimeout   time.Duration `mapstructure:"join_timeout"`
	AuditBuffer   int           `mapstructure:"audit_buffer"`
	Capture       Capture       `mapstructure:"capture"`
}

func Load() (*Config, error) {
	// godotenv.Load does not overwrite existing env vars.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("relay_url", "ws://localhost:9090/relay")
	v.SetDefault("join_timeout", "10s")
	v.SetDefault("audit_buffer", 256)
	v.SetDefault("capture.camera_video_port", 5004)
	v.SetDefault("capture.camera_audio_port", 5006)
	v.SetDefault("capture.screen_video_port", 5008)
	v.SetDefault("capture.screen_audio_port", 0)

	v.SetEnvPrefix("lectern")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
