package config

import (
	"os"
	"strconv"
	"strings"
)

var (
	TLS_DOMAINS        = "" // e.g. "example.com,example2.com"
	MYSQL_DSN          = "" // MySQL will be used if this is set
	SQLITE_FILE        = "" // SQLite will be used if MYSQL_DSN is not configured and this is set
	BIND_ADDRESS       = "0.0.0.0:8080"
	DEFAULT_BUCKET_DIR = "" // Used for creating initial bucket
	DEBUG_MODE         = true
	// Image transformer worker. The API server talks to it over HTTP so it
	// can be scaled (and restarted) independently of the metadata layer.
	TRANSFORMER_URL             = "http://127.0.0.1:8081"
	TRANSFORMER_BIND_ADDRESS    = "0.0.0.0:8081"
	TRANSFORMER_TIMEOUT_SECONDS = 30
	TRANSFORMER_QUALITY         = 80 // Default WebP quality for derived variants
)

func init() {
	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvString("DEFAULT_BUCKET_DIR", &DEFAULT_BUCKET_DIR)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("TRANSFORMER_URL", &TRANSFORMER_URL)
	readEnvString("TRANSFORMER_BIND_ADDRESS", &TRANSFORMER_BIND_ADDRESS)
	readEnvInt("TRANSFORMER_TIMEOUT_SECONDS", &TRANSFORMER_TIMEOUT_SECONDS)
	readEnvInt("TRANSFORMER_QUALITY", &TRANSFORMER_QUALITY)
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = f
}
