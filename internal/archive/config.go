// Package archive writes telemetry batches to S3-compatible object storage as
// Hive-partitioned Parquet or gzipped JSON lines objects.
package archive

// Object formats.
const (
	FormatParquet   = "parquet"
	FormatJSONLines = "jsonl.gz"
)

// Config holds archive configuration.
type Config struct {
	// S3 configuration
	S3 S3Config `envPrefix:"S3_"`

	// Format is the object format (parquet or jsonl.gz)
	Format string `env:"FORMAT" envDefault:"parquet"`

	// Parquet configuration
	Parquet ParquetConfig `envPrefix:"PARQUET_"`
}

// S3Config holds S3/MinIO configuration.
type S3Config struct {
	// Endpoint is the S3 endpoint URL (e.g., "http://localhost:9000" for MinIO)
	Endpoint string `env:"ENDPOINT" envDefault:"http://localhost:9000"`

	// Region is the AWS region
	Region string `env:"REGION" envDefault:"us-east-1"`

	// Bucket is the S3 bucket name
	Bucket string `env:"BUCKET" envDefault:"relogs-telemetry"`

	// AccessKeyID is the AWS access key ID
	AccessKeyID string `env:"ACCESS_KEY_ID" envDefault:"minioadmin"`

	// SecretAccessKey is the AWS secret access key
	SecretAccessKey string `env:"SECRET_ACCESS_KEY" envDefault:"minioadmin"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `env:"USE_PATH_STYLE" envDefault:"true"`

	// Prefix is the key prefix for all objects
	Prefix string `env:"PREFIX" envDefault:"telemetry"`

	// CreateBucket creates the bucket on startup when missing
	CreateBucket bool `env:"CREATE_BUCKET" envDefault:"false"`
}

// ParquetConfig holds Parquet writer configuration.
type ParquetConfig struct {
	// Compression is the compression codec (snappy, gzip, zstd, none)
	Compression string `env:"COMPRESSION" envDefault:"snappy"`
}
