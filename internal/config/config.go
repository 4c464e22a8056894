package config

import (
	"os"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	EnableLocalAuth bool
	AuthSecret      string

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Institution grading policy.
	GradeScale  string // e.g. "A:90,B:80,C:70,D:60,F:0"
	PassPercent float64

	// Client coordination defaults served to the browser.
	AutosaveDebounceMS int

	// Abandoned-attempt reaper.
	ReaperEnable      bool
	ReaperIntervalSec int

	// Records-system push for completed grades.
	RecordsURL   string
	RecordsToken string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           addr,
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", true),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://portal.unilearn.edu"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
		GradeScale:         envOr("GRADE_SCALE", "A:90,B:80,C:70,D:60,F:0"),
		PassPercent:        envFloat("PASS_PERCENT", 60),
		AutosaveDebounceMS: envInt("AUTOSAVE_DEBOUNCE_MS", 2000),
		ReaperEnable:       envBool("REAPER_ENABLE", false),
		ReaperIntervalSec:  envInt("REAPER_INTERVAL_SEC", 60),
		RecordsURL:         os.Getenv("RECORDS_URL"),
		RecordsToken:       os.Getenv("RECORDS_TOKEN"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
		return v
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
