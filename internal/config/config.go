package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BRIDGESCOPE"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Balance sources.
const (
	SourceIndexer = "indexer"
	SourceChain   = "chain"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	IndexerURL     string
	Network        uint32
	RequestTimeout time.Duration
	FetchTimeout   time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	RateLimit      float64
	RateBurst      int
	CacheBackend   string
	CacheTTL       time.Duration
	RedisAddr      string
	RedisPrefix    string
	BalanceSource  string
	RPC            map[uint32]string
	BridgeAddress  string
	Out            string
	PGDSN          string
	Format         string
	LogLevel       string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", 0)
	v.SetDefault("request-timeout", 15*time.Second)
	v.SetDefault("fetch-timeout", 20*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rate-limit", 0.0)
	v.SetDefault("rate-burst", 10)
	v.SetDefault("cache", CacheMemory)
	v.SetDefault("cache-ttl", 300*time.Second)
	v.SetDefault("redis-prefix", "bridgescope:")
	v.SetDefault("balance-source", SourceIndexer)
	v.SetDefault("format", "table")
	v.SetDefault("log-level", "info")
	v.SetDefault("listen", ":8080")
	v.SetDefault("shutdown-timeout", 10*time.Second)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	rpc, err := getNetworkMap(v, "rpc")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		IndexerURL:     strings.TrimRight(v.GetString("indexer"), "/"),
		Network:        v.GetUint32("network"),
		RequestTimeout: v.GetDuration("request-timeout"),
		FetchTimeout:   v.GetDuration("fetch-timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		RateLimit:      v.GetFloat64("rate-limit"),
		RateBurst:      v.GetInt("rate-burst"),
		CacheBackend:   strings.ToLower(v.GetString("cache")),
		CacheTTL:       v.GetDuration("cache-ttl"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPrefix:    v.GetString("redis-prefix"),
		BalanceSource:  strings.ToLower(v.GetString("balance-source")),
		RPC:            rpc,
		BridgeAddress:  v.GetString("bridge-address"),
		Out:            v.GetString("out"),
		PGDSN:          v.GetString("pg-dsn"),
		Format:         strings.ToLower(v.GetString("format")),
		LogLevel:       v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings and their dependencies.
func (c Config) Validate() error {
	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	switch c.BalanceSource {
	case SourceIndexer:
	case SourceChain:
		if len(c.RPC) == 0 {
			return fmt.Errorf("rpc endpoints are required for the chain balance source")
		}
		if c.BridgeAddress == "" {
			return fmt.Errorf("bridge-address is required for the chain balance source")
		}
	default:
		return fmt.Errorf("unknown balance source %q", c.BalanceSource)
	}

	switch c.Format {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

// getNetworkMap reads a network=value map keyed by rollup id.
func getNetworkMap(v *viper.Viper, key string) (map[uint32]string, error) {
	raw := getStringMap(v, key)
	out := make(map[uint32]string, len(raw))
	for k, val := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(k), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid network id %q", key, k)
		}
		out[uint32(id)] = val
	}
	return out, nil
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
