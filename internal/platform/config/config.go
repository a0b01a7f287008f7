package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Empty infrastructure URLs
// degrade to in-memory implementations so the binary runs standalone in dev.
type Server struct {
	Addr          string
	PostgresURL   string
	JWTSigningKey string

	// AdminPrincipals are principal IDs seeded with the Admin classification
	// at startup. Comma separated in the environment.
	AdminPrincipals []string

	Redis RedisConfig
	Kafka KafkaConfig
	Blob  BlobConfig
}

// RedisConfig controls the optional read cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the optional audit event publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// BlobConfig selects the document blob backend.
type BlobConfig struct {
	Driver   string // "memory", "fs" or "s3"
	Dir      string // fs driver root
	S3Bucket string
	S3Region string
	// S3Endpoint enables MinIO-style custom endpoints.
	S3Endpoint string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("REGISTRY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("REGISTRY_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var admins []string
	for _, p := range strings.Split(os.Getenv("REGISTRY_ADMIN_PRINCIPALS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			admins = append(admins, p)
		}
	}

	var brokers []string
	for _, b := range strings.Split(os.Getenv("REGISTRY_KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	auditTopic := os.Getenv("REGISTRY_KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "registry.audit"
	}

	blobDriver := os.Getenv("REGISTRY_BLOB_DRIVER")
	if blobDriver == "" {
		blobDriver = "memory"
	}

	return Server{
		Addr:            addr,
		PostgresURL:     os.Getenv("REGISTRY_POSTGRES_URL"),
		JWTSigningKey:   jwtSigningKey,
		AdminPrincipals: admins,
		Redis: RedisConfig{
			URL:          os.Getenv("REGISTRY_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
		Blob: BlobConfig{
			Driver:     blobDriver,
			Dir:        os.Getenv("REGISTRY_BLOB_DIR"),
			S3Bucket:   os.Getenv("REGISTRY_BLOB_S3_BUCKET"),
			S3Region:   os.Getenv("REGISTRY_BLOB_S3_REGION"),
			S3Endpoint: os.Getenv("REGISTRY_BLOB_S3_ENDPOINT"),
		},
	}
}
