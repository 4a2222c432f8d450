package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	StoreDriver     string // "firestore" or "mongo"
	FirebaseProject string
	MongoURI        string
	MongoDatabase   string

	// Demonstration mode for the like timing window. When enabled the
	// like handler keeps the legacy fixed delay between its read phase
	// and the conditional write.
	ObservationDelay         bool
	ObservationDelayDuration time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		Environment:              getEnv("ENVIRONMENT", "development"),
		StoreDriver:              getEnv("STORE_DRIVER", "mongo"),
		FirebaseProject:          getEnv("FIREBASE_PROJECT_ID", ""),
		MongoURI:                 getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:            getEnv("MONGO_DATABASE", "reviewshop"),
		ObservationDelay:         getEnvAsBool("LIKE_OBSERVATION_DELAY", false),
		ObservationDelayDuration: time.Duration(getEnvAsInt64("LIKE_OBSERVATION_DELAY_MS", 150)) * time.Millisecond,
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}
