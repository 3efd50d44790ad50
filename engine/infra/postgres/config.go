package postgres

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds PostgreSQL connection settings for the driver.
// Prefer providing a DSN via ConnString. When empty, a DSN will be
// synthesized from the individual fields.
type Config struct {
	ConnString string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string

	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	PingTimeout        time.Duration
	HealthCheckTimeout time.Duration
	// TxTimeout bounds transactions started without a context deadline.
	TxTimeout time.Duration
}

// DSN returns the connection string used for both the pool and migrations.
func (c *Config) DSN() string {
	return dsn(c)
}

func dsn(cfg *Config) string {
	if s := strings.TrimSpace(cfg.ConnString); s != "" {
		return s
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + port,
		Path:     "/" + cfg.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(sslMode)),
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	return u.String()
}
