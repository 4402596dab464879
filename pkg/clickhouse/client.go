package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client manages a ClickHouse connection pool via database/sql.
type Client struct {
	db *sql.DB
}

// ClientOption configures the client.
type ClientOption func(*ClientConfig)

// ClientConfig holds connection parameters.
type ClientConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	MaxOpenConns int
	MaxIdleConns int
	DialTimeout  time.Duration
}

// WithHost sets the server host.
func WithHost(host string) ClientOption {
	return func(c *ClientConfig) { c.Host = host }
}

// WithPort sets the native protocol port.
func WithPort(port int) ClientOption {
	return func(c *ClientConfig) { c.Port = port }
}

// WithDatabase sets the database name.
func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) { c.Database = database }
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// NewClient opens and pings a connection pool.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Port:         9000,
		Database:     "default",
		User:         "default",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		DialTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	dsn := fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s?dial_timeout=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.DialTimeout)
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{db: db}, nil
}

// DB returns the underlying pool for direct use.
func (c *Client) DB() *sql.DB { return c.db }

// InitSchema runs idempotent DDL statements.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
