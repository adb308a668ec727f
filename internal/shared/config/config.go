package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
	}
	Events struct {
		TTLSeconds int // event records expire this many seconds after creation
	}
	Notifications struct {
		SMTPHost          string
		SMTPPort          int
		From              string
		BatchSize         int // flush the batch at this many messages
		BatchWaitSeconds  int // ... or after this window, whichever first
		MaxAttempts       int // dead-letter a message after this many attempts
		DLQRetentionHours int
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	// Events
	if cfg.Events.TTLSeconds == 0 {
		cfg.Events.TTLSeconds = 300 // 5 minutes, same as the source table's TTL
	}

	// Notifications
	if cfg.Notifications.SMTPHost == "" {
		cfg.Notifications.SMTPHost = "localhost"
	}
	if cfg.Notifications.SMTPPort == 0 {
		cfg.Notifications.SMTPPort = 25
	}
	if cfg.Notifications.From == "" {
		cfg.Notifications.From = "no-reply@ecommerce.local"
	}
	if cfg.Notifications.BatchSize == 0 {
		cfg.Notifications.BatchSize = 3
	}
	if cfg.Notifications.BatchWaitSeconds == 0 {
		cfg.Notifications.BatchWaitSeconds = 60
	}
	if cfg.Notifications.MaxAttempts == 0 {
		cfg.Notifications.MaxAttempts = 3
	}
	if cfg.Notifications.DLQRetentionHours == 0 {
		cfg.Notifications.DLQRetentionHours = 240 // 10 days
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database (name) is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Redis
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		problems = append(problems, "redis.port must be in 1..65535")
	}

	// Events
	if c.Events.TTLSeconds < 1 {
		problems = append(problems, "events.ttl_seconds must be > 0")
	}

	// Notifications
	if c.Notifications.SMTPPort <= 0 || c.Notifications.SMTPPort > 65535 {
		problems = append(problems, "notifications.smtp_port must be in 1..65535")
	}
	if c.Notifications.BatchSize < 1 {
		problems = append(problems, "notifications.batch_size must be >= 1")
	}
	if c.Notifications.BatchWaitSeconds < 1 {
		problems = append(problems, "notifications.batch_wait_seconds must be >= 1")
	}
	if c.Notifications.MaxAttempts < 1 {
		problems = append(problems, "notifications.max_attempts must be >= 1")
	}
	if c.Notifications.DLQRetentionHours < 1 {
		problems = append(problems, "notifications.dlq_retention_hours must be >= 1")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// parseYAML parses the specific two-level mapping used by config.yaml.
func parseYAML(r io.Reader, cfg *Config) error {
	const (
		none = ""
		db   = "database"
		rm   = "rabbitmq"
		rd   = "redis"
		ev   = "events"
		nt   = "notifications"
	)

	scanner := bufio.NewScanner(r)
	cur := none

	lineNo := 0
	seenTop := map[string]bool{}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// Strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// Top-level section? (no leading spaces)
		if line[0] != ' ' && line[0] != '\t' {
			name := strings.TrimSuffix(strings.TrimSpace(line), ":")
			switch name {
			case db, rm, rd, ev, nt:
				if seenTop[name] {
					return fmt.Errorf("line %d: duplicate %q section", lineNo, name)
				}
				seenTop[name] = true
				cur = name
			default:
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, name)
			}
			continue
		}

		// Expect indented "key: value"
		if cur == none {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := strings.TrimSpace(trim[colon+1:])

		atoi := func(field string) (int, error) {
			n, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("line %d: %s must be int: %v", lineNo, field, err)
			}
			return n, nil
		}

		var err error
		switch cur {
		case db:
			switch key {
			case "host":
				cfg.Database.Host = val
			case "port":
				cfg.Database.Port, err = atoi("database.port")
			case "user":
				cfg.Database.User = val
			case "password":
				cfg.Database.Password = val
			case "database":
				cfg.Database.Name = val
			default:
				return fmt.Errorf("line %d: unknown key in database: %q", lineNo, key)
			}
		case rm:
			switch key {
			case "host":
				cfg.RabbitMQ.Host = val
			case "port":
				cfg.RabbitMQ.Port, err = atoi("rabbitmq.port")
			case "user":
				cfg.RabbitMQ.User = val
			case "password":
				cfg.RabbitMQ.Password = val
			default:
				return fmt.Errorf("line %d: unknown key in rabbitmq: %q", lineNo, key)
			}
		case rd:
			switch key {
			case "host":
				cfg.Redis.Host = val
			case "port":
				cfg.Redis.Port, err = atoi("redis.port")
			case "password":
				cfg.Redis.Password = val
			case "db":
				cfg.Redis.DB, err = atoi("redis.db")
			default:
				return fmt.Errorf("line %d: unknown key in redis: %q", lineNo, key)
			}
		case ev:
			switch key {
			case "ttl_seconds":
				cfg.Events.TTLSeconds, err = atoi("events.ttl_seconds")
			default:
				return fmt.Errorf("line %d: unknown key in events: %q", lineNo, key)
			}
		case nt:
			switch key {
			case "smtp_host":
				cfg.Notifications.SMTPHost = val
			case "smtp_port":
				cfg.Notifications.SMTPPort, err = atoi("notifications.smtp_port")
			case "from":
				cfg.Notifications.From = val
			case "batch_size":
				cfg.Notifications.BatchSize, err = atoi("notifications.batch_size")
			case "batch_wait_seconds":
				cfg.Notifications.BatchWaitSeconds, err = atoi("notifications.batch_wait_seconds")
			case "max_attempts":
				cfg.Notifications.MaxAttempts, err = atoi("notifications.max_attempts")
			case "dlq_retention_hours":
				cfg.Notifications.DLQRetentionHours, err = atoi("notifications.dlq_retention_hours")
			default:
				return fmt.Errorf("line %d: unknown key in notifications: %q", lineNo, key)
			}
		}
		if err != nil {
			return err
		}
	}

	return scanner.Err()
}
