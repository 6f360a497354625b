package config

import (
	"os"
	"strconv"
	"strings"
)

// Config vitalink-data (HTTP API) + vitalink-agent configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Agent AgentConfig
	MQTT  MQTTConfig
}

// DatabaseConfig PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// AgentConfig vitalink-agent (device-side sync) configuration
type AgentConfig struct {
	BaseURL      string   // primary ingest server
	FallbackURLs []string // tried in order when the primary is unreachable
	PatientID    string
	OriginID     string
	DeviceID     string
	BatchSize    int    // max queue entries drained per request
	HRChunkSize  int    // heart-rate uploads are chunked because of volume
	QueueCap     int    // max entries held per metric before enqueue refuses
	SyncInterval int    // seconds between periodic drains
	QueueBackend string // "memory" or "redis"
}

// MQTTConfig sync-trigger subscription (optional, default disabled)
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, vitalink-data will
	// fall back to in-memory repositories (no writes survive a restart).
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalink")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Agent.BaseURL = getEnv("AGENT_BASE_URL", "http://localhost:8080")
	cfg.Agent.FallbackURLs = splitList(getEnv("AGENT_FALLBACK_URLS", "http://10.0.2.2:8080,http://127.0.0.1:8080"))
	cfg.Agent.PatientID = getEnv("AGENT_PATIENT_ID", "")
	cfg.Agent.OriginID = getEnv("AGENT_ORIGIN_ID", "android_health_connect")
	cfg.Agent.DeviceID = getEnv("AGENT_DEVICE_ID", "")
	cfg.Agent.BatchSize = parseInt(getEnv("AGENT_BATCH_SIZE", "500"), 500)
	cfg.Agent.HRChunkSize = parseInt(getEnv("AGENT_HR_CHUNK_SIZE", "500"), 500)
	cfg.Agent.QueueCap = parseInt(getEnv("AGENT_QUEUE_CAP", "10000"), 10000)
	cfg.Agent.SyncInterval = parseInt(getEnv("AGENT_SYNC_INTERVAL", "900"), 900)
	cfg.Agent.QueueBackend = getEnv("AGENT_QUEUE_BACKEND", "memory")

	// MQTT sync trigger (default disabled)
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vitalink-agent")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "vitalink/sync/#")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
