package config

import "time"

// Config 配置主体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Elastic    ElasticConfig    `mapstructure:"elastic"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Mail       MailConfig       `mapstructure:"mail"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	OTP        OTPConfig        `mapstructure:"otp"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Logstash   LogstashConfig   `mapstructure:"logstash"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	CookieDomain string   `mapstructure:"cookie_domain"`
	CookieSecure bool     `mapstructure:"cookie_secure"`
	TempDir      string   `mapstructure:"temp_dir"`
}

// IsProduction 是否生产模式
func (s ServerConfig) IsProduction() bool {
	return s.Mode == "release"
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	PublicEndpoint string `mapstructure:"public_endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Bucket         string `mapstructure:"bucket"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	MaxImageSide   int    `mapstructure:"max_image_side"`
}

// ElasticConfig Elastic配置
type ElasticConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Address        string `mapstructure:"address"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	CharacterIndex string `mapstructure:"character_index"`
}

type KafkaConfig struct {
	Enabled      bool             `mapstructure:"enabled"`
	Brokers      []string         `mapstructure:"brokers"`
	Sasl         SaslConfig       `mapstructure:"sasl"`
	Consumer     ConsumerConfig   `mapstructure:"consumer"`
	CommentAudit KafkaTopicConfig `mapstructure:"comment_audit"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
}

type KafkaTopicConfig struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// LLMConfig 大模型配置
type LLMConfig struct {
	OpenAI      ProviderConfig `mapstructure:"openai"`
	Gemini      ProviderConfig `mapstructure:"gemini"`
	TextModel   string         `mapstructure:"text_model"`
	VisionModel string         `mapstructure:"vision_model"`
	Temperature float64        `mapstructure:"temperature"`
	Timeout     time.Duration  `mapstructure:"timeout"`
}

type ProviderConfig struct {
	URL    string `mapstructure:"url"`
	ApiKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type MailConfig struct {
	URL     string        `mapstructure:"url"`
	ApiKey  string        `mapstructure:"api_key"`
	From    string        `mapstructure:"from"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type OTPConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ModerationConfig 审核与封禁阈值
type ModerationConfig struct {
	SuspendDays            int  `mapstructure:"suspend_days"`
	BanThreshold           int  `mapstructure:"ban_threshold"`
	UserReportThreshold    int  `mapstructure:"user_report_threshold"`
	CommentReportThreshold int  `mapstructure:"comment_report_threshold"`
	ChatEnabled            bool `mapstructure:"chat_enabled"`
}

type SchedulerConfig struct {
	ReminderAfter time.Duration `mapstructure:"reminder_after"`
	SweepSpec     string        `mapstructure:"sweep_spec"`
}

type LogstashConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}
