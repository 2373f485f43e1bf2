// Package connstring parses the URI-shaped connection string that selects a
// storage backend and its configuration: sqlite:///path[?params],
// redis://[user[:pass]@]host[:port][/db][?params], and the reserved
// postgres(ql):// scheme.
package connstring

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extended-memory/mcp-storage/internal/memerr"
)

// Provider identifies which backend a Descriptor selects.
type Provider string

const (
	ProviderSQLite     Provider = "sqlite"
	ProviderRedis      Provider = "redis"
	ProviderPostgreSQL Provider = "postgresql"
)

// SQLiteConfig holds the parsed configuration for the relational backend.
type SQLiteConfig struct {
	DatabasePath     string
	Timeout          float64
	CheckSameThread  bool
	JournalMode      string
}

// RedisConfig holds the parsed configuration for the key-value backend.
type RedisConfig struct {
	Host                 string
	Port                 int
	Database             int
	Username             string
	Password             string
	SocketTimeout        float64
	SocketConnectTimeout float64
	RetryOnTimeout       bool
	MaxConnections       int
}

// PostgreSQLConfig is parsed but unused: the scheme is recognized and
// reserved per the connection descriptor grammar; no backend implements it.
type PostgreSQLConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ConnectTimeout  int
	ApplicationName string
}

// Descriptor is the parsed, validated result of Parse.
type Descriptor struct {
	Provider   Provider
	SQLite     *SQLiteConfig
	Redis      *RedisConfig
	PostgreSQL *PostgreSQLConfig
}

var schemeAliases = map[string]Provider{
	"sqlite":     ProviderSQLite,
	"redis":      ProviderRedis,
	"postgresql": ProviderPostgreSQL,
	"postgres":   ProviderPostgreSQL,
}

// Parse validates and parses a connection string into a Descriptor. All
// failures are Configuration-kind errors (memerr.Configuration), since a bad
// connection string must fail initialization loudly, never fall back to a
// different backend.
func Parse(raw string) (*Descriptor, error) {
	const op = "connstring.Parse"
	if strings.TrimSpace(raw) == "" {
		return nil, memerr.Configf(op, "connection string cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, memerr.ConfigErr(op, fmt.Errorf("invalid URL format: %w", err))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return nil, memerr.Configf(op, "missing scheme in connection string")
	}
	provider, ok := schemeAliases[scheme]
	if !ok {
		return nil, memerr.Configf(op, "unsupported scheme %q", scheme)
	}

	switch provider {
	case ProviderSQLite:
		cfg, err := parseSQLite(u)
		if err != nil {
			return nil, err
		}
		return &Descriptor{Provider: provider, SQLite: cfg}, nil
	case ProviderRedis:
		cfg, err := parseRedis(u)
		if err != nil {
			return nil, err
		}
		return &Descriptor{Provider: provider, Redis: cfg}, nil
	case ProviderPostgreSQL:
		cfg, err := parsePostgreSQL(u)
		if err != nil {
			return nil, err
		}
		return &Descriptor{Provider: provider, PostgreSQL: cfg}, nil
	default:
		return nil, memerr.Configf(op, "no parser for provider %q", provider)
	}
}

func parseSQLite(u *url.URL) (*SQLiteConfig, error) {
	const op = "connstring.parseSQLite"
	if u.Host != "" {
		return nil, memerr.Configf(op, "sqlite connection string should not have host/port: use sqlite:///absolute/path")
	}

	path := u.Path
	if path == "" {
		return nil, memerr.Configf(op, "sqlite connection string missing database path")
	}

	if strings.HasPrefix(path, "/~/") {
		path = path[1:]
	} else if strings.HasPrefix(path, "//") {
		path = path[1:]
	}

	path = expandUser(path)
	path = os.ExpandEnv(path)

	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, memerr.ConfigErr(op, fmt.Errorf("invalid database path %q: %w", path, err))
	}
	if strings.Contains(resolved, "..") || strings.HasPrefix(resolved, "/etc/") || strings.HasPrefix(resolved, "/var/") {
		return nil, memerr.Configf(op, "potentially unsafe database path: %s", path)
	}

	q := u.Query()
	return &SQLiteConfig{
		DatabasePath:    resolved,
		Timeout:         queryFloat(q, "timeout", 30.0),
		CheckSameThread: queryBool(q, "check_same_thread", true),
		JournalMode:     queryString(q, "journal_mode", "WAL"),
	}, nil
}

func parseRedis(u *url.URL) (*RedisConfig, error) {
	const op = "connstring.parseRedis"
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := 6379
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, memerr.Configf(op, "invalid redis port: %s", p)
		}
		port = n
	}

	database := 0
	if u.Path != "" && u.Path != "/" {
		n, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, memerr.Configf(op, "invalid redis database number: %s", u.Path)
		}
		database = n
	}

	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	q := u.Query()
	return &RedisConfig{
		Host:                 host,
		Port:                 port,
		Database:             database,
		Username:             username,
		Password:             password,
		SocketTimeout:        queryFloat(q, "socket_timeout", 30.0),
		SocketConnectTimeout: queryFloat(q, "socket_connect_timeout", 30.0),
		RetryOnTimeout:       queryBool(q, "retry_on_timeout", true),
		MaxConnections:       queryInt(q, "max_connections", 10),
	}, nil
}

func parsePostgreSQL(u *url.URL) (*PostgreSQLConfig, error) {
	const op = "connstring.parsePostgreSQL"
	if u.Hostname() == "" {
		return nil, memerr.Configf(op, "postgresql connection string missing hostname")
	}
	if u.Path == "" || u.Path == "/" {
		return nil, memerr.Configf(op, "postgresql connection string missing database name")
	}

	port := 5432
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	var user, password string
	if u.User != nil {
		user = u.User.Username()
		password, _ = u.User.Password()
	}

	q := u.Query()
	return &PostgreSQLConfig{
		Host:            u.Hostname(),
		Port:            port,
		Database:        strings.TrimPrefix(u.Path, "/"),
		User:            user,
		Password:        password,
		SSLMode:         queryString(q, "sslmode", "prefer"),
		ConnectTimeout:  queryInt(q, "connect_timeout", 30),
		ApplicationName: queryString(q, "application_name", "extended-memory-mcp"),
	}, nil
}

func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func queryString(q url.Values, key, def string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return def
}

func queryFloat(q url.Values, key string, def float64) float64 {
	v := q.Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func queryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(q url.Values, key string, def bool) bool {
	v := strings.ToLower(q.Get(key))
	if v == "" {
		return def
	}
	switch v {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// DefaultConnectionString resolves the effective connection string:
// explicit override; else STORAGE_CONNECTION_STRING; else the platform
// default.
func DefaultConnectionString(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if v := os.Getenv("STORAGE_CONNECTION_STRING"); strings.TrimSpace(v) != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return "sqlite:///" + filepath.Join(home, ".local", "share", "extended-memory-mcp", "memory.db")
}
