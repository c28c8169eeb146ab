package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CacheBackend != CacheMemory || cfg.BalanceSource != SourceIndexer {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheTTL != 300*time.Second || cfg.MaxRetries != 3 || cfg.Format != "table" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("BRIDGESCOPE_INDEXER", "http://indexer.local/")
	t.Setenv("BRIDGESCOPE_CACHE", "redis")
	t.Setenv("BRIDGESCOPE_REDIS_ADDR", "127.0.0.1:6379")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint32("network", 0, "")
	flags.String("rpc", "", "")
	flags.String("balance-source", "indexer", "")
	flags.String("bridge-address", "", "")
	if err := flags.Parse([]string{
		"--network=3",
		"--rpc=0=http://l1,1=http://l2",
		"--balance-source=chain",
		"--bridge-address=0x2a3DD3EB832aF982ec71669E178424b10Dca2EDe",
	}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IndexerURL != "http://indexer.local" {
		t.Fatalf("indexer url = %q", cfg.IndexerURL)
	}
	if cfg.Network != 3 || cfg.CacheBackend != CacheRedis || cfg.BalanceSource != SourceChain {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RPC[0] != "http://l1" || cfg.RPC[1] != "http://l2" {
		t.Fatalf("rpc = %v", cfg.RPC)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridgescope.yaml")
	content := "indexer: http://file.local\nformat: json\nrpc:\n  \"5\": http://five\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IndexerURL != "http://file.local" || cfg.Format != "json" || cfg.RPC[5] != "http://five" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{CacheBackend: CacheNone, BalanceSource: SourceIndexer, Format: "table"}
	if err := base.Validate(); err != nil {
		t.Fatalf("base: %v", err)
	}

	cases := map[string]func(c *Config){
		"unknown cache":      func(c *Config) { c.CacheBackend = "disk" },
		"redis without addr": func(c *Config) { c.CacheBackend = CacheRedis },
		"chain without rpc":  func(c *Config) { c.BalanceSource = SourceChain },
		"chain without bridge": func(c *Config) {
			c.BalanceSource = SourceChain
			c.RPC = map[uint32]string{0: "http://l1"}
		},
		"unknown format": func(c *Config) { c.Format = "csv" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadServe(t *testing.T) {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.StringSlice("cors-origin", nil, "")
	flags.String("listen", ":8080", "")
	if err := flags.Parse([]string{"--listen=:9000", "--cors-origin=http://a, http://b"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := LoadServe("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" || len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("unexpected serve config: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout = %s", cfg.ShutdownTimeout)
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap(" a = 1 ,b=,=c,d=2,junk")
	if len(got) != 2 || got["a"] != "1" || got["d"] != "2" {
		t.Fatalf("unexpected map: %v", got)
	}
}

func TestGetNetworkMapRejectsBadIDs(t *testing.T) {
	v := viper.New()
	v.Set("rpc", "x=http://bad")
	if _, err := getNetworkMap(v, "rpc"); err == nil {
		t.Fatalf("expected error")
	}
}
