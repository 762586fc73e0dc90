// Package config loads service configuration from a YAML file, an optional
// .env file and environment variables using viper and godotenv.
//
// Environment variables override file values. Keys are derived from the
// mapstructure tags of the target struct, upper-cased, joined with '_' and
// prefixed with the service name:
//
//	storage.s3.bucket  ->  SCRIBE_STORAGE_S3_BUCKET
package config
