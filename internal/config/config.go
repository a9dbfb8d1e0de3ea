package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"brgykonek"`

	OTPTTL        time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPRateWindow time.Duration `env:"OTP_RATE_WINDOW" envDefault:"10m"`
	OTPRateMax    int           `env:"OTP_RATE_MAX" envDefault:"3"`

	LoginLockoutThreshold int           `env:"LOGIN_LOCKOUT_THRESHOLD" envDefault:"3"`
	LoginLockoutWindow    time.Duration `env:"LOGIN_LOCKOUT_WINDOW" envDefault:"15m"`
	AllowLegacyLogin      bool          `env:"AUTH_ALLOW_LEGACY_LOGIN" envDefault:"true"`
	DevicePurgeInterval   time.Duration `env:"DEVICE_PURGE_INTERVAL" envDefault:"1h"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"BrgyKonek"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	AMQPURL       string `env:"AMQP_URL"`
	AMQPMailQueue string `env:"AMQP_MAIL_QUEUE" envDefault:"auth.otp.mail"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	UploadDir          string   `env:"UPLOAD_DIR" envDefault:"uploads"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:4200"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment indica si el servicio corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "dev", "development", "local":
		return true
	}
	return false
}
