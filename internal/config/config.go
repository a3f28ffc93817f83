package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database settings point at the MySQL
// instance backing the seat pool; the Event* fields describe the single
// event row that is seeded at startup.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	EventID         string // identifier of the managed event
	EventName       string // display name used when seeding
	EventTotalSeats int    // pool capacity used when seeding
}

// Load reads configuration from the environment and returns a Config.
// A .env file is loaded first when present so local development does not
// need exported variables.  Required variables are enforced by must()
// and missing values cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // missing .env is fine; real env vars win anyway

	return Config{
		Env:             getenv("APP_ENV", "dev"),
		Port:            getenv("APP_PORT", "3000"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		EventID:         getenv("EVENT_ID", "node-meetup-2025"),
		EventName:       getenv("EVENT_NAME", "Node.js Meet-up"),
		EventTotalSeats: envInt("EVENT_TOTAL_SEATS", 500),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv returns the value of key or a default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt reads an integer variable, falling back to a default when the
// variable is unset or not a valid number.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}
