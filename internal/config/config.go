package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
}

type TMDB struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
}

type RedisCache struct {
	Host     string
	Port     string
	Password string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Rooms struct {
	// How long an empty room survives before eviction.
	EvictionGrace time.Duration
}

type Config struct {
	HTTP     HTTPServer
	TMDB     TMDB
	Redis    RedisCache
	Postgres Postgres
	Rooms    Rooms
}

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := &Config{
		HTTP:     *newHTTP(),
		TMDB:     *newTMDB(),
		Redis:    *newRedis(),
		Postgres: *newPostgres(),
		Rooms:    *newRooms(),
	}

	return cfg
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "3001"),
		Host: getenv("HTTP_HOST", "localhost"),
	}
}

func newTMDB() *TMDB {
	return &TMDB{
		APIKey:       getenv("TMDB_API_KEY", ""),
		BaseURL:      getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		ImageBaseURL: getenv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
	}
}

// Redis host left empty disables the catalog cache.
func newRedis() *RedisCache {
	return &RedisCache{
		Port:     getenv("REDIS_PORT", "6379"),
		Host:     getenv("REDIS_HOST", ""),
		Password: getenv("REDIS_PASSWORD", ""),
	}
}

// Postgres host left empty disables the match archive.
func newPostgres() *Postgres {
	return &Postgres{
		Host:     getenv("DB_HOST", ""),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "admin"),
		Password: getenv("DB_PASSWORD", "shared"),
		DBName:   getenv("DB_NAME", "flickpick"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

func newRooms() *Rooms {
	raw := getenv("ROOM_EVICTION_GRACE", "60s")
	grace, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s bad ROOM_EVICTION_GRACE %q : %v", logtag, raw, err)
	}
	return &Rooms{EvictionGrace: grace}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	return val
}
