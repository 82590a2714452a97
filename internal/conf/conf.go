// Package conf loads the subsystem's runtime configuration through viper,
// the same way the rest of this codebase's config layer does: defaults set
// in code, optionally overridden by a YAML file and by environment
// variables prefixed NEUTRON_.
package conf

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds every flag this subsystem consumes.
type Config struct {
	DataDir     string `mapstructure:"datadir"`
	DBCacheMB   int    `mapstructure:"dbcache"`
	CheckLevel  int    `mapstructure:"checklevel"`
	CheckBlocks int    `mapstructure:"checkblocks"`
	SporkKeyHex string `mapstructure:"sporkkey"`
	TestNet     bool   `mapstructure:"testnet"`
	LogLevel    string `mapstructure:"loglevel"`
}

func defaults() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("neutron")
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("datadir", filepath.Join(home, ".neutron"))
	v.SetDefault("dbcache", 25)
	v.SetDefault("checklevel", 1)
	v.SetDefault("checkblocks", 500)
	v.SetDefault("sporkkey", "")
	v.SetDefault("testnet", false)
	v.SetDefault("loglevel", "debug")
	return v
}

// Load reads configFile (if non-empty and present) over the defaults above,
// then applies environment overrides, and returns the resolved Config.
func Load(configFile string) (*Config, error) {
	v := defaults()
	if configFile != "" {
		if f, err := os.Open(configFile); err == nil {
			defer f.Close()
			v.SetConfigType(filepath.Ext(configFile)[1:])
			if err := v.ReadConfig(f); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StoreDir returns the directory the KV engine adapter should open.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "txleveldb")
}
