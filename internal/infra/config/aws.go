package config

// AWSConfig represents the AWS configuration.
type AWSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"    validate:"required_if=Enabled true"`
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Prefix string `mapstructure:"s3_prefix"`
}

// NATSConfig enables publication of host ledgers.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"     validate:"required_if=Enabled true"`
	Subject string `mapstructure:"subject" validate:"required_if=Enabled true"`
}
