package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"reign/internal/logging"
	"reign/internal/remote"
	"reign/internal/storage"
)

// Client is the CLI configuration.
type Client struct {
	Origin         string
	APIURL         string
	DataDir        string
	StorageQuota   int
	RequestTimeout time.Duration
	SyncDebounce   time.Duration
	SyncInitDelay  time.Duration
	Log            logging.Config
}

// BaseURL is api_url when set, otherwise derived from origin.
func (c Client) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	return remote.BaseURLFor(c.Origin)
}

func (c Client) DataPath() string    { return filepath.Join(c.DataDir, "reign.db") }
func (c Client) SessionPath() string { return filepath.Join(c.DataDir, "session.db") }

// LoadClient reads reign.yaml (path, or the user config dir when path is
// empty) and REIGN_* environment variables over built-in defaults. A missing
// config file is not an error.
func LoadClient(path string) (Client, error) {
	v := viper.New()
	v.SetDefault("origin", "http://localhost:5173")
	v.SetDefault("api_url", "")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("storage_quota", storage.DefaultQuota)
	v.SetDefault("request_timeout", remote.DefaultTimeout)
	v.SetDefault("sync_debounce", 2*time.Second)
	v.SetDefault("sync_init_delay", time.Second)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetEnvPrefix("REIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reign")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "reign"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Client{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := Client{
		Origin:         v.GetString("origin"),
		APIURL:         v.GetString("api_url"),
		DataDir:        v.GetString("data_dir"),
		StorageQuota:   v.GetInt("storage_quota"),
		RequestTimeout: v.GetDuration("request_timeout"),
		SyncDebounce:   v.GetDuration("sync_debounce"),
		SyncInitDelay:  v.GetDuration("sync_init_delay"),
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
	}
	if c.DataDir == "" {
		return Client{}, errors.New("data_dir is empty")
	}
	if c.RequestTimeout <= 0 || c.SyncDebounce <= 0 || c.SyncInitDelay <= 0 {
		return Client{}, errors.New("timeouts must be positive")
	}
	return c, nil
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "reign")
	}
	return ".reign"
}
