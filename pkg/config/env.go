package config

// EnvPrefix is empty because every field carries an explicit
// TIENDA_-prefixed envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TIENDA_APP_ENV"
	EnvPort     = "TIENDA_APP_PORT"
	EnvRedisURL = "TIENDA_REDIS_URL"

	EnvJWTSecret              = "TIENDA_JWT_SECRET"
	EnvJWTIssuer              = "TIENDA_JWT_ISSUER"
	EnvJWTExpMins             = "TIENDA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TIENDA_REFRESH_TOKEN_TTL_MINUTES"

	EnvDBDSN  = "TIENDA_DB_DSN"
	EnvDBHost = "TIENDA_DB_HOST"
	EnvDBUser = "TIENDA_DB_USER"
	EnvDBName = "TIENDA_DB_NAME"

	EnvStripeAPIKey = "TIENDA_STRIPE_API_KEY"
	EnvStripeSecret = "TIENDA_STRIPE_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
