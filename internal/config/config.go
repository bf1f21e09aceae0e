// Package config loads the scheduler's runtime configuration from
// environment variables, with optional .env file support via godotenv,
// using small getEnv/getEnvInt/getEnvBool helpers for each knob.
package config

import (
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// Config holds the scheduler's startup configuration: the three
// periodic classes, the random class, the processing horizon, radio
// transport, and ambient HTTP/metrics surface.
type Config struct {
	NodeID string

	Classes     [3]sched.ClassConfig
	Random      sched.RandomConfig
	ThresholdMs int64

	SelfMAC [6]byte
	PeerMAC [6]byte
	BSSID   [6]byte

	RadioEndpoint  string             // primary ZMQ PUB endpoint this station binds
	RadioEndpoints []ExternalEndpoint // candidate endpoints, priority order; RADIO_ENDPOINT is priority 0, RADIO_ENDPOINT_FALLBACKS supplies the rest

	TXPowerInterval time.Duration

	ControlAddr   string // gorilla/mux HTTP command surface listen address
	MetricsAddr   string // Prometheus /metrics listen address
	EnableMetrics bool
}

// Load reads Config from the environment, applying the same defaults
// the default scenarios assume.
func Load() Config {
	loadEnvironmentConfig()

	cfg := Config{
		NodeID:          getEnv("NODE_ID", "station-1"),
		Classes:         sched.DefaultClassConfigs(),
		Random:          sched.DefaultRandomConfig(),
		ThresholdMs:     int64(getEnvInt("THRESHOLD_MS", 1000)),
		SelfMAC:         parseMAC(getEnv("SELF_MAC", "02:00:00:00:00:01")),
		PeerMAC:         parseMAC(getEnv("PEER_MAC", "02:00:00:00:00:02")),
		BSSID:           parseMAC(getEnv("BSSID", "02:00:00:00:00:ff")),
		RadioEndpoint:   getEnv("RADIO_ENDPOINT", "tcp://127.0.0.1:28432"),
		TXPowerInterval: time.Duration(getEnvInt("TXPOWER_INTERVAL_SEC", 5)) * time.Second,
		ControlAddr:     getEnv("CONTROL_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ":9090"),
		EnableMetrics:   getEnvBool("ENABLE_METRICS", true),
	}

	cfg.Classes[wireclass.ClassA].PeriodMs = sched.ClampPeriod(int64(getEnvInt("CLASS_A_PERIOD_MS", int(cfg.Classes[0].PeriodMs))))
	cfg.Classes[wireclass.ClassB].PeriodMs = sched.ClampPeriod(int64(getEnvInt("CLASS_B_PERIOD_MS", int(cfg.Classes[1].PeriodMs))))
	cfg.Classes[wireclass.ClassC].PeriodMs = sched.ClampPeriod(int64(getEnvInt("CLASS_C_PERIOD_MS", int(cfg.Classes[2].PeriodMs))))

	cfg.RadioEndpoints = []ExternalEndpoint{
		{URL: cfg.RadioEndpoint, Priority: 0, Timeout: 5 * time.Second},
	}
	for i, url := range getEnvList("RADIO_ENDPOINT_FALLBACKS") {
		cfg.RadioEndpoints = append(cfg.RadioEndpoints, ExternalEndpoint{
			URL: url, Priority: i + 1, Timeout: 5 * time.Second,
		})
	}

	return cfg
}

// RadioEndpointURLs returns RadioEndpoints sorted ascending by Priority,
// the order radio.NewZMQRadio tries candidates in.
func (c Config) RadioEndpointURLs() []string {
	sorted := append([]ExternalEndpoint(nil), c.RadioEndpoints...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	urls := make([]string, len(sorted))
	for i, ep := range sorted {
		urls[i] = ep.URL
	}
	return urls
}

func parseMAC(s string) [6]byte {
	var out [6]byte
	var b [6]int
	n, err := parseMACFields(s, &b)
	if err != nil || n != 6 {
		return out
	}
	for i := 0; i < 6; i++ {
		out[i] = byte(b[i])
	}
	return out
}

// parseMACFields scans a colon-separated hex MAC address into six
// fields, avoiding fmt.Sscanf's reflection overhead for a value read
// once at startup.
func parseMACFields(s string, out *[6]int) (int, error) {
	n := 0
	start := 0
	for i := 0; i <= len(s) && n < 6; i++ {
		if i == len(s) || s[i] == ':' {
			v, err := strconv.ParseInt(s[start:i], 16, 16)
			if err != nil {
				return n, err
			}
			out[n] = int(v)
			n++
			start = i + 1
		}
	}
	return n, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma-separated environment variable into its
// trimmed, non-empty fields. An unset or empty variable yields nil.
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || v == "true"
	}
	return def
}

// loadEnvironmentConfig loads a .env file if present, falling back to
// the process environment otherwise.
func loadEnvironmentConfig() {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env file")
	} else {
		log.Printf("config: no .env file found, using process environment")
	}
}
