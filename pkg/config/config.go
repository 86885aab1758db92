package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Store        StoreConfig
	Azure        AzureConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WORKBOOKS_APP_ENV" default:"local"`
	Port         string `envconfig:"WORKBOOKS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WORKBOOKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WORKBOOKS_LOG_WARN_STACK" default:"false"`

	// CORSOrigins overrides the local development origins.
	CORSOrigins []string `envconfig:"WORKBOOKS_CORS_ORIGINS"`
}

func (a AppConfig) IsLocal() bool {
	return strings.EqualFold(a.Env, AppEnvLocal)
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || a.IsLocal()
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Name string `envconfig:"WORKBOOKS_SERVICE_NAME" default:"workbooks"`
	Kind string `envconfig:"WORKBOOKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WORKBOOKS_DB_DSN"`
	Driver string `envconfig:"WORKBOOKS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"WORKBOOKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WORKBOOKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WORKBOOKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WORKBOOKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type StoreConfig struct {
	Backend string `envconfig:"WORKBOOKS_STORE_BACKEND" default:"sql"`
}

// BackendKind returns the parsed backend; Load has already validated it.
func (s StoreConfig) BackendKind() enums.StoreBackend {
	backend, _ := enums.ParseStoreBackend(s.Backend)
	return backend
}

type AzureConfig struct {
	ConnectionString  string        `envconfig:"WORKBOOKS_AZURE_STORAGE_CONNECTION_STRING"`
	Table             string        `envconfig:"WORKBOOKS_AZURE_TABLE" default:"workbooks"`
	Queue             string        `envconfig:"WORKBOOKS_AZURE_QUEUE" default:"workbook-commands"`
	VisibilityTimeout time.Duration `envconfig:"WORKBOOKS_AZURE_QUEUE_VISIBILITY_TIMEOUT" default:"30s"`
	PollInterval      time.Duration `envconfig:"WORKBOOKS_AZURE_QUEUE_POLL_INTERVAL" default:"1s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WORKBOOKS_REDIS_URL"`
	Address      string        `envconfig:"WORKBOOKS_REDIS_ADDR"`
	Password     string        `envconfig:"WORKBOOKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"WORKBOOKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WORKBOOKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WORKBOOKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WORKBOOKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WORKBOOKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WORKBOOKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"WORKBOOKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WORKBOOKS_JWT_ISSUER" default:"workbooks"`
	ExpirationMinutes int    `envconfig:"WORKBOOKS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"WORKBOOKS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"WORKBOOKS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	WorkbookTopic        string `envconfig:"WORKBOOKS_PUBSUB_WORKBOOK_TOPIC" default:"workbook-commands"`
	WorkbookSubscription string `envconfig:"WORKBOOKS_PUBSUB_WORKBOOK_SUBSCRIPTION" default:"workbook-commands-worker"`
}

type EventingConfig struct {
	Transport             string        `envconfig:"WORKBOOKS_EVENTING_TRANSPORT" default:"pubsub"`
	SchemaVersions        []string      `envconfig:"WORKBOOKS_EVENTING_SCHEMA_VERSIONS" default:"2020-04-23"`
	ClaimTTL              time.Duration `envconfig:"WORKBOOKS_EVENTING_CLAIM_TTL" default:"5m"`
	PublishTimeout        time.Duration `envconfig:"WORKBOOKS_EVENTING_PUBLISH_TIMEOUT" default:"15s"`
	RequestIdempotencyTTL time.Duration `envconfig:"WORKBOOKS_EVENTING_REQUEST_IDEMPOTENCY_TTL" default:"24h"`
}

// TransportKind returns the parsed transport; Load has already validated it.
func (e EventingConfig) TransportKind() enums.Transport {
	transport, _ := enums.ParseTransport(e.Transport)
	return transport
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WORKBOOKS_AUTO_MIGRATE" default:"false"`
}

func (c *Config) validate() error {
	var errs error

	backend, err := enums.ParseStoreBackend(c.Store.Backend)
	errs = multierr.Append(errs, err)
	transport, err := enums.ParseTransport(c.Eventing.Transport)
	errs = multierr.Append(errs, err)

	switch backend {
	case enums.StoreBackendSQL:
		if strings.TrimSpace(c.DB.DSN) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the sql store", EnvDBDSN))
		}
		if driver := strings.ToLower(strings.TrimSpace(c.DB.Driver)); driver != "postgres" && driver != "sqlite" {
			errs = multierr.Append(errs, fmt.Errorf("unsupported %s %q", EnvDBDriver, c.DB.Driver))
		}
	case enums.StoreBackendAzTables:
		if strings.TrimSpace(c.Azure.ConnectionString) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the aztables store", EnvAzureConnectionString))
		}
	}

	switch transport {
	case enums.TransportPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the pubsub transport", EnvGCPProjectID))
		}
		if strings.TrimSpace(c.PubSub.WorkbookTopic) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the pubsub transport", EnvPubSubWorkbookTopic))
		}
	case enums.TransportAzQueue:
		if strings.TrimSpace(c.Azure.ConnectionString) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the azqueue transport", EnvAzureConnectionString))
		}
	}

	versions := make([]string, 0, len(c.Eventing.SchemaVersions))
	for _, v := range c.Eventing.SchemaVersions {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			versions = append(versions, trimmed)
		}
	}
	if len(versions) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must list at least one version", EnvEventingSchemaVersions))
	}
	c.Eventing.SchemaVersions = versions

	return errs
}
