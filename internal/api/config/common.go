package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SODIUM"

// Cfg 全局可访问的配置实例
var Cfg *Config

// ApplyDefaults 设置默认值与环境变量绑定
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.temp_dir", "./tmp")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_lifetime", 60)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("mongo.database", "sodium")
	v.SetDefault("minio.bucket", "sodium")
	v.SetDefault("minio.max_image_side", 1024)
	v.SetDefault("elastic.character_index", "characters")
	v.SetDefault("kafka.comment_audit.topic", "comment-audit")
	v.SetDefault("kafka.comment_audit.group_id", "sodium-comment-audit")
	v.SetDefault("llm.text_model", "gpt-4o-mini")
	v.SetDefault("llm.vision_model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.8)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("jwt.issuer", "Sodium")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("moderation.suspend_days", 7)
	v.SetDefault("moderation.ban_threshold", 3)
	v.SetDefault("moderation.user_report_threshold", 10)
	v.SetDefault("moderation.comment_report_threshold", 5)
	v.SetDefault("moderation.chat_enabled", true)
	v.SetDefault("scheduler.reminder_after", 72*time.Hour)
	v.SetDefault("scheduler.sweep_spec", "0 */1 * * * *")
}

// LoadConfig 从文件加载配置并填充到 Cfg, path 为空时读取 ./configs/config.yaml
func LoadConfig(path string) error {
	v := viper.GetViper()
	ApplyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) || path != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	Cfg = &cfg
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Moderation.SuspendDays <= 0 || c.Moderation.BanThreshold <= 0 {
		return errors.New("moderation.suspend_days and moderation.ban_threshold must be positive")
	}
	return nil
}
