package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pion/webrtc/v4"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`

	Room     RoomConfig
	Database DatabaseConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig

	Coturn CoturnConfig

	// ICEServers собирается из Coturn и STUN_URLS в New
	ICEServers []webrtc.ICEServer `env:"-"`
}

type RoomConfig struct {
	HistoryLimit           int           `env:"HISTORY_LIMIT" envDefault:"50"`
	DefaultMaxParticipants int           `env:"DEFAULT_MAX_PARTICIPANTS" envDefault:"100"`
	SendBuffer             int           `env:"SEND_BUFFER" envDefault:"64"`
	IdleTimeout            time.Duration `env:"ROOM_IDLE_TIMEOUT" envDefault:"1m"`
	SeedFile               string        `env:"ROOMS_FILE"`
}

type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"postgres"`
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"livecollab"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"livecollab.db"`
}

type CoturnConfig struct {
	Host string `env:"COTURN_HOST"`

	// Secret - static-auth-secret coturn, нужен для генерации временных кредов для фронта
	Secret string `env:"COTURN_SECRET"`

	STUNURLs []string `env:"STUN_URLS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302"`
}

// Enabled сообщает, настроен ли TURN
func (c *CoturnConfig) Enabled() bool {
	return c.Host != "" && c.Secret != ""
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = c.validate(); err != nil {
		return nil, err
	}

	if len(c.Coturn.STUNURLs) > 0 {
		c.ICEServers = append(c.ICEServers, webrtc.ICEServer{URLs: c.Coturn.STUNURLs})
	}

	if c.Coturn.Enabled() {
		c.ICEServers = append(c.ICEServers, webrtc.ICEServer{
			URLs: []string{
				fmt.Sprintf("turn:%s?transport=udp", c.Coturn.Host),
				fmt.Sprintf("turn:%s?transport=tcp", c.Coturn.Host),
			},
		})
	}

	return &c, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Room.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.Room.HistoryLimit)
	}

	if c.Room.DefaultMaxParticipants <= 0 {
		return fmt.Errorf("DEFAULT_MAX_PARTICIPANTS must be positive, got %d", c.Room.DefaultMaxParticipants)
	}

	if c.Room.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.Room.SendBuffer)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// DSN возвращает строку подключения для выбранного драйвера
func (c *Config) DSN() string {
	if c.Database.Driver == DriverSQLite {
		return c.SQLite.Path
	}

	return c.Postgres.DSN()
}

// Level возвращает уровень логирования; DEBUG=true всегда включает debug
func (c *Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}

	level, _ := ParseLevel(c.LogLevel)

	return level
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
