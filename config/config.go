package config

import (
	"os"
	"strings"
	"time"

	"github.com/assimon/bepusdt/model/dao"
	"github.com/assimon/bepusdt/model/data"
	"github.com/assimon/bepusdt/model/service"
	"github.com/assimon/bepusdt/util/http_client"
	"github.com/assimon/bepusdt/util/log"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "BEPUSDT"
	appVersion = "1.0.0"
)

// Settings 全部配置
type Settings struct {
	Gateway service.Config   `mapstructure:"gateway"`
	Log     log.Options      `mapstructure:"log"`
	Notify  NotifySettings   `mapstructure:"notify"`
	Redis   dao.RedisOptions `mapstructure:"redis"`
	Metrics MetricsSettings  `mapstructure:"metrics"`
}

// NotifySettings 回调服务
type NotifySettings struct {
	Listen  string        `mapstructure:"listen"`
	Path    string        `mapstructure:"path"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func GetAppVersion() string {
	return appVersion
}

// Load 读取配置，优先级: 环境变量 > 配置文件 > 默认值
// path 为空时依次查找 ./config.yaml、./config/config.yaml
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "加载 .env 失败")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "读取配置文件失败")
		}
	}

	settings := new(Settings)
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.Wrap(err, "解析配置失败")
	}
	return settings, nil
}

// setDefaults 所有 key 都需要默认值，AutomaticEnv 才能在 Unmarshal 时生效
func setDefaults(v *viper.Viper) {
	policy := http_client.DefaultRetryPolicy()
	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.timeout", http_client.DefaultTimeout)
	v.SetDefault("gateway.max_retries", policy.MaxRetries)
	v.SetDefault("gateway.base_delay", policy.BaseDelay)
	v.SetDefault("gateway.retry_mutations_on_timeout", true)
	v.SetDefault("gateway.proxy", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 32)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.console", true)

	v.SetDefault("notify.listen", ":8080")
	v.SetDefault("notify.path", "/notify")
	v.SetDefault("notify.lock_ttl", data.DefaultLockTTL)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
}
