// Package config 加载服务的 YAML 配置文件。
//
// 所有字段都有可用的默认值：零配置即可用内存存储与默认权重启动，
// 连上真实 MySQL 只需要填 db.dsn。DSN 同时支持环境变量 SOLEREC_DB_DSN
// 覆盖，避免把凭据写进配置文件。
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 是服务的全部配置。
type Config struct {
	HTTP      HTTP      `yaml:"http"`
	DB        DB        `yaml:"db"`
	Snapshot  Snapshot  `yaml:"snapshot"`
	Train     Train     `yaml:"train"`
	Recommend Recommend `yaml:"recommend"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type DB struct {
	DSN string `yaml:"dsn"`
}

// Snapshot 选择模型快照的持久化后端。
type Snapshot struct {
	// Backend 为 memory、file 或 redis
	Backend string `yaml:"backend"`
	// Dir 为 file 后端的目录
	Dir string `yaml:"dir"`
	// RedisAddr 为 redis 后端的地址
	RedisAddr string `yaml:"redis_addr"`
	// Key 为快照在后端中的 key；空用默认值
	Key string `yaml:"key"`
}

type Train struct {
	// Cron 为定时重训表达式（带秒位）；空则不启用定时重训
	Cron string `yaml:"cron"`
}

type Recommend struct {
	DefaultN      int     `yaml:"default_n"`
	ExcludeRule   string  `yaml:"exclude_rule"`
	CFWeight      float64 `yaml:"cf_weight"`
	ContentWeight float64 `yaml:"content_weight"`
}

// Default 返回全部默认值：本地端口、文件快照、每天凌晨 3 点重训。
func Default() Config {
	return Config{
		HTTP:     HTTP{Addr: ":8000"},
		Snapshot: Snapshot{Backend: "file", Dir: "data"},
		Train:    Train{Cron: "0 0 3 * * *"},
		Recommend: Recommend{
			DefaultN: 5,
		},
	}
}

// Load 读取 YAML 配置文件并叠加在默认值之上。path 为空时直接返回
// 默认配置。未知字段视为拼写错误，拒绝加载。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if dsn := os.Getenv("SOLEREC_DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}
	return cfg, nil
}
