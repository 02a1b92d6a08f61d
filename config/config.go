package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DBPath         string
	AllowedOrigins []string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	ControlSocket  string
}

func Load() *Config {
	// A missing .env file is fine; the environment wins either way.
	godotenv.Load()

	cfg := &Config{
		Addr:           ":8170",
		DBPath:         "chatd.db",
		AllowedOrigins: []string{"*"},
		ReadTimeout:    30,
		WriteTimeout:   30,
		ControlSocket:  "/tmp/chatd.sock",
	}

	if addr := os.Getenv("CHATD_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	if dbPath := os.Getenv("CHATD_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if origins := os.Getenv("CHATD_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	if timeoutStr := os.Getenv("CHATD_READ_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.ReadTimeout = timeout
		}
	}

	if timeoutStr := os.Getenv("CHATD_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if socket := os.Getenv("CHATD_CONTROL_SOCKET"); socket != "" {
		cfg.ControlSocket = socket
	}

	return cfg
}
