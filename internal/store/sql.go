package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Import common SQL drivers
	_ "github.com/go-sql-driver/mysql" // MySQL
	_ "github.com/lib/pq"              // PostgreSQL

	"github.com/credsync/credsync/internal/config"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// sqlDriverMap normalizes the configured database type to a driver name.
var sqlDriverMap = map[string]string{
	"postgresql": "postgres",
	"postgres":   "postgres",
	"mysql":      "mysql",
	"mariadb":    "mysql",
}

// SQLClient updates credential columns in a relational user table.
type SQLClient struct {
	name      string
	driver    string
	dsn       string
	table     string
	idCol     string
	userCol   string
	passCol   string
	logger    *logging.Logger
	db        *sql.DB
	connected bool
}

// SQLOption configures a SQLClient.
type SQLOption func(*SQLClient)

// WithDB injects an open database handle, used by tests to supply a mock.
func WithDB(db *sql.DB) SQLOption {
	return func(c *SQLClient) {
		c.db = db
	}
}

// NewSQLClient builds a SQL-backed store client from configuration.
func NewSQLClient(name string, cfg config.StoreConfig, logger *logging.Logger, opts ...SQLOption) (*SQLClient, error) {
	dbType := strings.ToLower(cfg.ConfigString("driver"))
	driver, ok := sqlDriverMap[dbType]
	if !ok {
		return nil, credserrors.ConfigError{
			Field:      fmt.Sprintf("stores.%s.driver", name),
			Value:      cfg.ConfigString("driver"),
			Message:    "unsupported database driver",
			Suggestion: "Supported drivers: postgres, postgresql, mysql, mariadb",
		}
	}

	client := &SQLClient{
		name:    name,
		driver:  driver,
		dsn:     cfg.ConfigString("dsn"),
		table:   configOrDefault(cfg, "table", "users"),
		idCol:   configOrDefault(cfg, "id_column", "id"),
		userCol: configOrDefault(cfg, "username_column", "username"),
		passCol: configOrDefault(cfg, "password_column", "password_hash"),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.db == nil {
		if client.dsn == "" {
			return nil, credserrors.ConfigError{
				Field:      fmt.Sprintf("stores.%s.dsn", name),
				Message:    "connection string is required",
				Suggestion: "Set 'dsn' to the database connection string",
			}
		}
		db, err := sql.Open(driver, client.dsn)
		if err != nil {
			return nil, credserrors.StoreError{Store: name, Op: "open connection", Transient: false, Err: err}
		}
		client.db = db
	}

	return client, nil
}

func configOrDefault(cfg config.StoreConfig, key, fallback string) string {
	if v := cfg.ConfigString(key); v != "" {
		return v
	}
	return fallback
}

// Name returns the configured store name.
func (c *SQLClient) Name() string {
	return c.name
}

// Authenticate verifies the connection by pinging the database.
func (c *SQLClient) Authenticate(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		c.connected = false
		// Driver errors can echo the DSN, which embeds credentials.
		return credserrors.StoreError{
			Store: c.name, Op: "authenticate", Transient: true,
			Err: errors.New(logging.Redact(err.Error(), []string{c.dsn})),
		}
	}
	c.connected = true
	c.logger.Debug("store %s: database connection verified", c.name)
	return nil
}

// IsAuthenticated reports whether the last ping succeeded.
func (c *SQLClient) IsAuthenticated() bool {
	return c.connected
}

// UpdateCredential writes the hashed credential for one row. A zero-row
// update means the record does not exist in this store, which no amount of
// retrying will fix.
func (c *SQLClient) UpdateCredential(ctx context.Context, recordID, username, hashedPassword string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s WHERE %s = %s",
		c.table,
		c.passCol, c.placeholder(1),
		c.userCol, c.placeholder(2),
		c.idCol, c.placeholder(3))

	result, err := c.db.ExecContext(ctx, query, hashedPassword, username, recordID)
	if err != nil {
		c.connected = false
		return credserrors.StoreError{Store: c.name, Op: "update credential", Transient: true, Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return credserrors.StoreError{Store: c.name, Op: "update credential", Transient: true, Err: err}
	}
	if rows == 0 {
		return credserrors.StoreError{
			Store:     c.name,
			Op:        "update credential",
			Transient: false,
			Err:       fmt.Errorf("no record with %s = %s", c.idCol, recordID),
		}
	}

	c.logger.Debug("store %s: updated credential for record %s", c.name, recordID)
	return nil
}

// GetCredential reads the stored credential hash for one row.
func (c *SQLClient) GetCredential(ctx context.Context, recordID string) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		c.passCol, c.table, c.idCol, c.placeholder(1))

	var hash string
	err := c.db.QueryRowContext(ctx, query, recordID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", credserrors.StoreError{
			Store:     c.name,
			Op:        "get credential",
			Transient: false,
			Err:       fmt.Errorf("no record with %s = %s", c.idCol, recordID),
		}
	}
	if err != nil {
		c.connected = false
		return "", credserrors.StoreError{Store: c.name, Op: "get credential", Transient: true, Err: err}
	}
	return hash, nil
}

// Close releases the database handle.
func (c *SQLClient) Close() error {
	c.connected = false
	return c.db.Close()
}

// placeholder returns the positional parameter marker for the driver.
func (c *SQLClient) placeholder(n int) string {
	if c.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
