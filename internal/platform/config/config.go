package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at construction and never mutated at runtime. The
// pipeline, validation engine, and providers receive their slices of it as
// read-only values.
type Config struct {
	Addr string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	Providers  ProvidersConfig
	Validation ValidationConfig
	Cache      CacheConfig
	Batch      BatchConfig
	Consent    ConsentConfig

	// ExportSigningKey signs GDPR portability packages so consumers can
	// verify they were produced by this service.
	ExportSigningKey string

	// CreditCodecKey is a hex-encoded 32-byte key for the sensitive-data
	// codec that seals credit payloads between vendor response and merge.
	CreditCodecKey string
}

// RedisConfig configures the shared cache client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event stream. Empty brokers disables it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// VendorEndpoint is the static wiring for one upstream vendor. Order in a
// provider's Vendors slice matters: the first entry is primary, the rest are
// fallbacks.
type VendorEndpoint struct {
	Name       string
	BaseURL    string
	AuthStyle  string
	Credential string
}

// ProviderConfig holds per-source limits. Rate limits reflect vendor cost and
// data sensitivity: property is permissive, social moderate, credit strict.
type ProviderConfig struct {
	RateLimit  int
	RateWindow time.Duration
	Timeout    time.Duration
	Vendors    []VendorEndpoint
}

type ProvidersConfig struct {
	Property ProviderConfig
	Social   ProviderConfig
	Credit   ProviderConfig
}

// ValidationConfig carries quality scoring knobs. The strict default gate
// (score >= 95 with zero issues) is intentionally configurable; typical
// multi-source runs do not meet it when any provider degrades.
type ValidationConfig struct {
	PropertyWeight  float64
	SocialWeight    float64
	CreditWeight    float64
	IssuePenalty    float64
	MinQualityScore float64
	MaxIssues       int
	DefaultRegion   string
}

type CacheConfig struct {
	ResultTTL time.Duration
	HealthTTL time.Duration
}

type BatchConfig struct {
	MaxSize int
	Delay   time.Duration
}

type ConsentConfig struct {
	DefaultTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// Development defaults keep the server bootable with nothing set.
func FromEnv() Config {
	return Config{
		Addr:        envString("LEAD_ENRICH_ADDR", ":8080"),
		PostgresURL: os.Getenv("LEAD_ENRICH_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("LEAD_ENRICH_REDIS_URL"),
			PoolSize:     envInt("LEAD_ENRICH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LEAD_ENRICH_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("LEAD_ENRICH_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("LEAD_ENRICH_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("LEAD_ENRICH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("LEAD_ENRICH_KAFKA_BROKERS"),
			AuditTopic: envString("LEAD_ENRICH_AUDIT_TOPIC", "lead.audit.events"),
		},
		Providers: ProvidersConfig{
			Property: ProviderConfig{
				RateLimit:  envInt("LEAD_ENRICH_PROPERTY_RATE_LIMIT", 100),
				RateWindow: time.Minute,
				Timeout:    envDuration("LEAD_ENRICH_PROPERTY_TIMEOUT", 10*time.Second),
				Vendors: []VendorEndpoint{
					{
						Name:       "atlasdata",
						BaseURL:    envString("LEAD_ENRICH_ATLASDATA_URL", "https://api.atlasdata.example.com"),
						AuthStyle:  "bearer",
						Credential: os.Getenv("LEAD_ENRICH_ATLASDATA_KEY"),
					},
					{
						Name:       "parcelio",
						BaseURL:    envString("LEAD_ENRICH_PARCELIO_URL", "https://api.parcelio.example.com"),
						AuthStyle:  "api_key",
						Credential: os.Getenv("LEAD_ENRICH_PARCELIO_KEY"),
					},
				},
			},
			Social: ProviderConfig{
				RateLimit:  envInt("LEAD_ENRICH_SOCIAL_RATE_LIMIT", 50),
				RateWindow: time.Minute,
				Timeout:    envDuration("LEAD_ENRICH_SOCIAL_TIMEOUT", 5*time.Second),
				Vendors: []VendorEndpoint{
					{
						Name:       "linkgraph",
						BaseURL:    envString("LEAD_ENRICH_LINKGRAPH_URL", "https://api.linkgraph.example.com"),
						AuthStyle:  "bearer",
						Credential: os.Getenv("LEAD_ENRICH_LINKGRAPH_KEY"),
					},
					{
						Name:       "socialmesh",
						BaseURL:    envString("LEAD_ENRICH_SOCIALMESH_URL", "https://api.socialmesh.example.com"),
						AuthStyle:  "api_key",
						Credential: os.Getenv("LEAD_ENRICH_SOCIALMESH_KEY"),
					},
				},
			},
			Credit: ProviderConfig{
				RateLimit:  envInt("LEAD_ENRICH_CREDIT_RATE_LIMIT", 10),
				RateWindow: time.Minute,
				// Credit bureaus are the slowest and most sensitive upstream.
				Timeout: envDuration("LEAD_ENRICH_CREDIT_TIMEOUT", 30*time.Second),
				Vendors: []VendorEndpoint{
					{
						Name:       "bureaux-prime",
						BaseURL:    envString("LEAD_ENRICH_BUREAUX_PRIME_URL", "https://api.bureaux-prime.example.com"),
						AuthStyle:  "basic",
						Credential: os.Getenv("LEAD_ENRICH_BUREAUX_PRIME_KEY"),
					},
					{
						Name:       "bureau-backup",
						BaseURL:    envString("LEAD_ENRICH_BUREAU_BACKUP_URL", "https://api.bureau-backup.example.com"),
						AuthStyle:  "bearer",
						Credential: os.Getenv("LEAD_ENRICH_BUREAU_BACKUP_KEY"),
					},
				},
			},
		},
		Validation: ValidationConfig{
			PropertyWeight:  envFloat("LEAD_ENRICH_PROPERTY_WEIGHT", 0.4),
			SocialWeight:    envFloat("LEAD_ENRICH_SOCIAL_WEIGHT", 0.3),
			CreditWeight:    envFloat("LEAD_ENRICH_CREDIT_WEIGHT", 0.3),
			IssuePenalty:    envFloat("LEAD_ENRICH_ISSUE_PENALTY", 10),
			MinQualityScore: envFloat("LEAD_ENRICH_MIN_QUALITY_SCORE", 95),
			MaxIssues:       envInt("LEAD_ENRICH_MAX_ISSUES", 0),
			DefaultRegion:   envString("LEAD_ENRICH_DEFAULT_REGION", "US"),
		},
		Cache: CacheConfig{
			ResultTTL: envDuration("LEAD_ENRICH_RESULT_TTL", time.Hour),
			HealthTTL: envDuration("LEAD_ENRICH_HEALTH_TTL", 30*time.Second),
		},
		Batch: BatchConfig{
			MaxSize: envInt("LEAD_ENRICH_BATCH_MAX", 50),
			Delay:   envDuration("LEAD_ENRICH_BATCH_DELAY", 200*time.Millisecond),
		},
		Consent: ConsentConfig{
			DefaultTTL: envDuration("LEAD_ENRICH_CONSENT_TTL", 365*24*time.Hour),
		},
		// Defaults are for development only and must be overridden in production.
		ExportSigningKey: envString("LEAD_ENRICH_EXPORT_SIGNING_KEY", "dev-export-key-change-in-production"),
		CreditCodecKey:   envString("LEAD_ENRICH_CREDIT_CODEC_KEY", hex.EncodeToString(make([]byte, 32))),
	}
}

// CodecKey decodes the hex credit codec key.
func (c Config) CodecKey() ([]byte, error) {
	return hex.DecodeString(c.CreditCodecKey)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
