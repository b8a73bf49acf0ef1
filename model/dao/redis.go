package dao

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const redisPingTimeout = 5 * time.Second

// RedisOptions redis 连接配置，Addr 可以是 host:port 或 redis:// 地址
type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled 是否配置了 redis
func (o RedisOptions) Enabled() bool {
	return strings.TrimSpace(o.Addr) != ""
}

// NewRedis 创建 redis 客户端并测试连接
func NewRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if !o.Enabled() {
		return nil, errors.New("redis 地址不能为空")
	}
	opt := &redis.Options{Addr: o.Addr}
	if strings.HasPrefix(o.Addr, "redis://") || strings.HasPrefix(o.Addr, "rediss://") {
		var err error
		if opt, err = redis.ParseURL(o.Addr); err != nil {
			return nil, errors.Wrapf(err, "redis 地址格式错误: %s", o.Addr)
		}
	}
	if o.Password != "" {
		opt.Password = o.Password
	}
	if o.DB != 0 {
		opt.DB = o.DB
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis 连接失败")
	}
	return client, nil
}
