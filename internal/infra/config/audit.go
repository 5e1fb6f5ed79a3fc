package config

import "time"

// AuditConfig holds the settings of an audit pass.
type AuditConfig struct {
	Oratab         string        `mapstructure:"oratab"           validate:"required"`
	Output         string        `mapstructure:"output"           validate:"required"`
	MaxAuditFiles  int           `mapstructure:"max_audit_files"  validate:"gte=0"`
	LimitAuditRows int           `mapstructure:"limit_audit_rows" validate:"gte=1,lte=10000"`
	Concurrency    int           `mapstructure:"concurrency"      validate:"gte=1,lte=64"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"    validate:"gt=0"`
	HostTimeout    time.Duration `mapstructure:"host_timeout"     validate:"gt=0"`
	SQLPlusPath    string        `mapstructure:"sqlplus_path"     validate:"required"`
	FileSuffixes   []string      `mapstructure:"file_suffixes"    validate:"min=1,dive,required"`
	Principal      string        `mapstructure:"principal"        validate:"required"`
	RulesFile      string        `mapstructure:"rules_file"`
	Schedule       string        `mapstructure:"schedule"         validate:"omitempty,cronspec"`
	Submit         SubmitConfig  `mapstructure:"submit"`
}

// SubmitConfig controls posting pass summaries to the check store.
type SubmitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"      validate:"required_if=Enabled true,omitempty,url"`
	Hostname string        `mapstructure:"hostname"`
	Timeout  time.Duration `mapstructure:"timeout"`
}
