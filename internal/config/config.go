package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Assignment AssignmentConfig `mapstructure:"assignment" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogPretty switches to the colored console handler for local
	// development. Production deployments keep JSON output.
	LogPretty bool `mapstructure:"log_pretty"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// PingTimeoutSeconds bounds the startup connectivity check.
	PingTimeoutSeconds int `mapstructure:"ping_timeout_seconds" validate:"required,min=1"`
}

// AuthConfig contains all authentication settings. Tokens are issued by
// the surrounding web application; this service only verifies them.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,min=1"`
}

// AssignmentConfig contains the assignment workflow settings.
type AssignmentConfig struct {
	// MaxAssignedBills caps the active bills a user may hold.
	MaxAssignedBills int `mapstructure:"max_assigned_bills" validate:"required,min=1"`

	// MaxAttempts bounds transaction retries on transient conflicts.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,min=1"`

	// CacheTTLSeconds is how long a capacity view stays fresh.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" validate:"required,min=1"`

	// CacheSweepIntervalSeconds is how often expired views are swept.
	CacheSweepIntervalSeconds int `mapstructure:"cache_sweep_interval_seconds" validate:"required,min=1"`

	// ActiveStages optionally overrides which stages count toward the
	// cap. Empty keeps the workflow package defaults.
	ActiveStages []string `mapstructure:"active_stages"`

	// AssignableStages optionally overrides which stages a bill can be
	// picked up from. Empty keeps the workflow package defaults.
	AssignableStages []string `mapstructure:"assignable_stages"`
}
