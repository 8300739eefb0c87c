package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dbsql "github.com/databricks/databricks-sql-go"
	"github.com/jmoiron/sqlx"
)

// DefaultStatement is run when no statement is given
const DefaultStatement = "SELECT 'Hello World from SQL Warehouse' AS msg"

const defaultPort = 443

// Config holds SQL warehouse connection configuration
type Config struct {
	Host     string // workspace URL or bare hostname
	HTTPPath string // /sql/1.0/warehouses/<id>
	Token    string
	Port     int
	Timeout  time.Duration
}

// Column is one named value of a result row
type Column struct {
	Name  string
	Value any
}

// Row keeps the columns in select-list order
type Row []Column

// NormalizeHostname strips the URL scheme and any trailing slash from host
func NormalizeHostname(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

// Open connects to the warehouse. The connection is verified lazily by the
// first query.
func Open(cfg *Config, logger *slog.Logger) (*sqlx.DB, error) {
	hostname := NormalizeHostname(cfg.Host)
	if hostname == "" {
		return nil, fmt.Errorf("warehouse hostname is required")
	}
	if cfg.HTTPPath == "" {
		return nil, fmt.Errorf("warehouse http path is required")
	}

	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	opts := []dbsql.ConnOption{
		dbsql.WithServerHostname(hostname),
		dbsql.WithPort(port),
		dbsql.WithHTTPPath(cfg.HTTPPath),
		dbsql.WithAccessToken(cfg.Token),
		dbsql.WithUserAgentEntry("workspace-jobs"),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, dbsql.WithTimeout(cfg.Timeout))
	}

	connector, err := dbsql.NewConnector(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse connector: %w", err)
	}

	logger.Debug("Warehouse connector created",
		slog.String("hostname", hostname),
		slog.String("http_path", cfg.HTTPPath),
	)

	return sqlx.NewDb(sql.OpenDB(connector), "databricks"), nil
}

// Query runs statement and returns every row
func Query(ctx context.Context, db *sqlx.DB, statement string) ([]Row, error) {
	if strings.TrimSpace(statement) == "" {
		statement = DefaultStatement
	}

	rows, err := db.QueryxContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to run statement: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = Column{Name: name, Value: v}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return result, nil
}
