package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Ranking RankingConfig `mapstructure:"ranking"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Lock    LockConfig    `mapstructure:"lock"`
	ETCD    ETCDConfig    `mapstructure:"etcd"`
	GraphQL GraphQLConfig `mapstructure:"graphql"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RankingConfig 排名与投票协议参数
type RankingConfig struct {
	VotingWindow  time.Duration `mapstructure:"voting_window"`
	VoteBonus     float64       `mapstructure:"vote_bonus"`
	PageSize      int           `mapstructure:"page_size"`
	GroupCacheTTL time.Duration `mapstructure:"group_cache_ttl"`
}

type MySQLConfig struct {
	Master       string `mapstructure:"master"`
	Slave        string `mapstructure:"slave"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	// 数据存储Redis
	DataAddress string        `mapstructure:"data_address"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Redlock使用的Redis节点
	LockAddresses []string `mapstructure:"lock_addresses"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// LockConfig 归档节点选举使用的分布式锁
type LockConfig struct {
	Backend    string        `mapstructure:"backend"` // etcd 或 redis
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

type ETCDConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type GraphQLConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultRanking 参考配置：7天投票窗口、每票432分、每页25篇、群组缓存60秒
func DefaultRanking() RankingConfig {
	return RankingConfig{
		VotingWindow:  7 * 24 * time.Hour,
		VoteBonus:     432,
		PageSize:      25,
		GroupCacheTTL: 60 * time.Second,
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultRanking()
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ranking.voting_window", def.VotingWindow)
	v.SetDefault("ranking.vote_bonus", def.VoteBonus)
	v.SetDefault("ranking.page_size", def.PageSize)
	v.SetDefault("ranking.group_cache_ttl", def.GroupCacheTTL)
	v.SetDefault("redis.data_address", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 3*time.Second)
	v.SetDefault("kafka.topic", "littlerank-events")
	v.SetDefault("kafka.group_id", "littlerank-archiver")
	v.SetDefault("lock.backend", "etcd")
	v.SetDefault("lock.timeout", 10*time.Second)
	v.SetDefault("lock.retry_count", 3)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("graphql.path", "/graphql")
}

// LoadConfig 加载配置文件，环境变量 LITTLERANK_* 可覆盖文件中的值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("littlerank")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Ranking.Validate(); err != nil {
		return err
	}
	return c.Lock.Validate()
}

// Validate 校验分布式锁参数，锁有效期同时决定续约间隔
func (l LockConfig) Validate() error {
	if l.Timeout < time.Second {
		return errors.New("lock.timeout 不能小于1秒")
	}
	if l.RetryCount < 0 {
		return errors.New("lock.retry_count 不能为负数")
	}
	return nil
}

// Validate 校验排名参数
func (r RankingConfig) Validate() error {
	if r.VotingWindow <= 0 {
		return errors.New("ranking.voting_window 必须大于0")
	}
	if r.VoteBonus <= 0 {
		return errors.New("ranking.vote_bonus 必须大于0")
	}
	if r.PageSize <= 0 {
		return errors.New("ranking.page_size 必须大于0")
	}
	if r.GroupCacheTTL < time.Second {
		return errors.New("ranking.group_cache_ttl 不能小于1秒")
	}
	return nil
}
