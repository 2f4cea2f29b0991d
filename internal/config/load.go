package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Load 从配置目录加载配置，并允许环境变量覆盖。
// 找不到配置文件时回退到默认配置（环境变量仍然生效），
// 这样本地开发不需要先准备 config.yaml。
// 环境变量命名规则：LIFESTORE_PAYMENT_SECRET 对应 payment.secret。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path == "" {
		path = "./config"
	}
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("LIFESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
