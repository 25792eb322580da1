package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration values from environment variables.
//
// A .env file in the working directory is loaded into the environment first;
// a missing file is not an error. Only variables that are set override the
// current values, so this stage composes with defaults and later overlays.
// Invalid duration or numeric values panic, consistent with the other
// configuration stages.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	setString("HTTP_ADDR", &config.HTTPAddr)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SECRET_KEY", &config.SecretKey)
	setDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	setDuration("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	setDuration("SESSION_TTL", &config.SessionTTL)
	setString("REDIS_ADDR", &config.RedisAddr)
	setString("CORS_ALLOW_ORIGINS", &config.CORSAllowOrigins)
	setString("AVATAR_BACKEND", &config.AvatarBackend)
	setString("AVATAR_DIR", &config.AvatarDir)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	if v, ok := os.LookupEnv("PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.PageSize = n
	}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.Debug = b
	}
}
