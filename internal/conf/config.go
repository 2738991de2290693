package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	NATS     NATSConfig
	Log      LogConfig
	Auth     AuthConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool `mapstructure:"automigrate"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicBaseURL fronts the bucket (CDN or reverse proxy). Object public
	// URLs are PublicBaseURL + "/" + objectKey.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type NATSConfig struct {
	URL string
	// EventSubject carries the bucket notification events MinIO publishes
	// for newly written objects.
	EventSubject string `mapstructure:"event_subject"`
	WorkerQueue  string `mapstructure:"worker_queue"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type UploadConfig struct {
	MaxFileSizeBytes int64         `mapstructure:"max_file_size_bytes"`
	GrantTTL         time.Duration `mapstructure:"grant_ttl"`
	// AuditSchedule is a cron spec for the in-process thumbnail audit.
	// Empty disables it.
	AuditSchedule string `mapstructure:"audit_schedule"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Upload.SetDefaults()

	return &config, nil
}

// SetDefaults fills unset upload policy fields with the fixed product limits.
func (c *UploadConfig) SetDefaults() {
	if c.MaxFileSizeBytes == 0 {
		c.MaxFileSizeBytes = 100 << 20 // 100 MiB
	}
	if c.GrantTTL == 0 {
		c.GrantTTL = 5 * time.Minute
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
