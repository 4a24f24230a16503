package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "OMS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "OMS_DB_DSN"
	EnvDBHost = "OMS_DB_HOST"
	EnvDBUser = "OMS_DB_USER"
	EnvDBName = "OMS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	CartLock     CartLockConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OMS_APP_ENV" required:"true"`
	Port         string `envconfig:"OMS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OMS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OMS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"OMS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OMS_DB_DSN"`
	Driver string `envconfig:"OMS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OMS_DB_HOST"`
	LegacyPort     int    `envconfig:"OMS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OMS_DB_USER"`
	LegacyPassword string `envconfig:"OMS_DB_PASSWORD"`
	LegacyName     string `envconfig:"OMS_DB_NAME"`
	LegacySSLMode  string `envconfig:"OMS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OMS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OMS_REDIS_ADDR"`
	Password     string        `envconfig:"OMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"OMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"OMS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OMS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"OMS_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OMS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OMS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OMS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OMS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OMS_ARGON_KEY_LEN" default:"32"`
}

// CartLockConfig tunes the per-user reconcile lease.
type CartLockConfig struct {
	TTL         time.Duration `envconfig:"OMS_CART_LOCK_TTL" default:"10s"`
	RetryBase   time.Duration `envconfig:"OMS_CART_LOCK_RETRY_BASE" default:"25ms"`
	MaxWait     time.Duration `envconfig:"OMS_CART_LOCK_MAX_WAIT" default:"3s"`
	MaxAttempts int           `envconfig:"OMS_CART_LOCK_MAX_ATTEMPTS" default:"20"`
}

type RateLimitConfig struct {
	RegisterWindow  time.Duration `envconfig:"OMS_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit int           `envconfig:"OMS_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"OMS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"OMS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
