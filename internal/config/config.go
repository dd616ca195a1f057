package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Policy holds the engine rules that operators tune per deployment. It can be
// supplied as a YAML file (POLICY_FILE); env vars override individual fields.
type Policy struct {
	GraceDays      int   `yaml:"grace_days"`
	CadenceMonths  int   `yaml:"cadence_months"`
	MaxRetries     int   `yaml:"max_retries"`
	MinorUnits     int32 `yaml:"minor_units"`
	SweepBatchSize int   `yaml:"sweep_batch_size"`
}

var DefaultPolicy = Policy{
	GraceDays:      30,
	CadenceMonths:  1,
	MaxRetries:     5,
	MinorUnits:     0,
	SweepBatchSize: 500,
}

type Config struct {
	AppPort     string
	ServiceName string
	LogLevel    string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisPass string
	RedisDB   int

	IdempTTLSecs int

	NotifyStream  string
	NotifyBuffer  int
	NotifyRetries int

	// SweepIntervalMins schedules the default sweep; 0 leaves it to the HTTP route.
	SweepIntervalMins int

	Policy Policy
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads .env (if present), the optional policy file and the environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	c := &Config{
		AppPort:     getenv("APP_PORT", "8080"),
		ServiceName: getenv("SERVICE_NAME", "meref-loan-engine"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "meref"),
		MySQLUser: getenv("MYSQL_USER", "meref"),
		MySQLPass: getenv("MYSQL_PASS", "meref"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisPass: os.Getenv("REDIS_PASS"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		NotifyStream:  getenv("NOTIFY_STREAM", "loan-events"),
		NotifyBuffer:  getenvInt("NOTIFY_BUFFER", 256),
		NotifyRetries: getenvInt("NOTIFY_RETRIES", 3),

		SweepIntervalMins: getenvInt("SWEEP_INTERVAL_MINUTES", 0),

		Policy: DefaultPolicy,
	}

	if path := os.Getenv("POLICY_FILE"); path != "" {
		p, err := LoadPolicyFile(path)
		if err != nil {
			return nil, err
		}
		c.Policy = p
	}
	c.Policy.GraceDays = getenvInt("POLICY_GRACE_DAYS", c.Policy.GraceDays)
	c.Policy.CadenceMonths = getenvInt("POLICY_CADENCE_MONTHS", c.Policy.CadenceMonths)
	c.Policy.MaxRetries = getenvInt("POLICY_MAX_RETRIES", c.Policy.MaxRetries)
	c.Policy.MinorUnits = int32(getenvInt("POLICY_MINOR_UNITS", int(c.Policy.MinorUnits)))
	return c, nil
}

// LoadPolicyFile parses a YAML policy. Fields absent from the file keep their defaults.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path) // #nosec G304: operator-supplied path
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file %s: %w", path, err)
	}
	p := DefaultPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("unmarshal policy file %s: %w", path, err)
	}
	return p, nil
}

func (p Policy) Validate() error {
	switch {
	case p.GraceDays < 0:
		return errors.New("policy: grace_days must be >= 0")
	case p.CadenceMonths < 1:
		return errors.New("policy: cadence_months must be >= 1")
	case p.MaxRetries < 1:
		return errors.New("policy: max_retries must be >= 1")
	case p.MinorUnits < 0 || p.MinorUnits > 4:
		return errors.New("policy: minor_units must be within 0..4")
	case p.SweepBatchSize < 1:
		return errors.New("policy: sweep_batch_size must be >= 1")
	}
	return nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.SweepIntervalMins < 0 {
		return errors.New("SWEEP_INTERVAL_MINUTES must be >= 0")
	}
	if c.NotifyBuffer < 1 {
		return errors.New("NOTIFY_BUFFER must be >= 1")
	}
	return c.Policy.Validate()
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime for DATETIME columns, loc=UTC so stored instants round-trip unchanged
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
