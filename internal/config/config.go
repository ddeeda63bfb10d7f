package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv" // godotenv loads a local .env file in development
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Secrets (the payment processor key pair, the
// email API key, the JWT signing secret) are required at startup; the
// process refuses to boot without them rather than failing mid-checkout.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	RazorpayKeyID  string // payment processor public key id
	RazorpaySecret string // payment processor secret, also verifies payment callbacks
	ResendAPIKey   string // transactional email API key
	EmailFrom      string // From address for booking confirmations
}

// Load reads configuration values from environment variables and returns a
// Config. A .env file is consulted first when present so local development
// does not need exported variables. Required variables are enforced by
// must() and missing values cause the program to exit with a fatal log
// message.
func Load() Config {
	_ = godotenv.Load() // best effort; real deployments export variables directly

	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		RazorpayKeyID:  must("RAZORPAY_KEY_ID"),
		RazorpaySecret: must("RAZORPAY_KEY_SECRET"),
		ResendAPIKey:   must("RESEND_API_KEY"),
		EmailFrom:      must("EMAIL_FROM"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
