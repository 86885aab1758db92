package config

const (
	EnvPrefix = "WORKBOOKS"

	AppEnvLocal = "local"
	AppEnvDev   = "dev"
	AppEnvProd  = "prod"

	EnvAppEnv       = "WORKBOOKS_APP_ENV"
	EnvPort         = "WORKBOOKS_APP_PORT"
	EnvLogLevel     = "WORKBOOKS_LOG_LEVEL"
	EnvServiceName  = "WORKBOOKS_SERVICE_NAME"
	EnvDBDSN        = "WORKBOOKS_DB_DSN"
	EnvDBDriver     = "WORKBOOKS_DB_DRIVER"
	EnvStoreBackend = "WORKBOOKS_STORE_BACKEND"
	EnvRedisURL     = "WORKBOOKS_REDIS_URL"
	EnvJWTSecret    = "WORKBOOKS_JWT_SECRET"
	EnvJWTIssuer    = "WORKBOOKS_JWT_ISSUER"
	EnvGCPProjectID = "WORKBOOKS_GCP_PROJECT_ID"

	EnvPubSubWorkbookTopic        = "WORKBOOKS_PUBSUB_WORKBOOK_TOPIC"
	EnvPubSubWorkbookSubscription = "WORKBOOKS_PUBSUB_WORKBOOK_SUBSCRIPTION"

	EnvAzureConnectionString = "WORKBOOKS_AZURE_STORAGE_CONNECTION_STRING"
	EnvAzureTable            = "WORKBOOKS_AZURE_TABLE"
	EnvAzureQueue            = "WORKBOOKS_AZURE_QUEUE"

	EnvEventingTransport      = "WORKBOOKS_EVENTING_TRANSPORT"
	EnvEventingSchemaVersions = "WORKBOOKS_EVENTING_SCHEMA_VERSIONS"
	EnvEventingClaimTTL       = "WORKBOOKS_EVENTING_CLAIM_TTL"
)
