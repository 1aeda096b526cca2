package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config 服务端配置（TOML）。玩法调参单独放在 YAML 中，见 game.LoadTuning。
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Network NetworkConfig `toml:"network"`
	Logging LoggingConfig `toml:"logging"`
	Game    GameConfig    `toml:"game"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"` // 为空则不提供静态资源
}

type NetworkConfig struct {
	TickInterval      time.Duration `toml:"tick_interval"` // 0 关闭自动 Tick
	MailboxSize       int           `toml:"mailbox_size"`
	SendQueueSize     int           `toml:"send_queue_size"`
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"`
	ClientTimeout     time.Duration `toml:"client_timeout"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	JoinTimeout       time.Duration `toml:"join_timeout"`
	ReadLimit         int64         `toml:"read_limit"`
	SnapshotCodec     string        `toml:"snapshot_codec"` // "json" 或 "msgpack"
}

type LoggingConfig struct {
	File    string `toml:"file"`
	Level   string `toml:"level"`
	Console bool   `toml:"console"` // 同时输出到 stderr
}

type GameConfig struct {
	TuningFile string `toml:"tuning_file"`
	Seed       int64  `toml:"seed"` // 0 使用当前时间
}

// Load 读取 TOML 配置，未出现的字段保留默认值；path 为空返回默认配置
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Network: NetworkConfig{
			TickInterval:      time.Second / TicksPerSecond,
			MailboxSize:       4096,
			SendQueueSize:     64,
			HeartbeatInterval: 5 * time.Second,
			ClientTimeout:     10 * time.Second,
			WriteTimeout:      5 * time.Second,
			JoinTimeout:       5 * time.Second,
			ReadLimit:         1 << 16,
			SnapshotCodec:     "json",
		},
		Logging: LoggingConfig{
			File:  "app.log",
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	n := c.Network
	switch {
	case n.TickInterval < 0:
		return errors.New("network.tick_interval must be >= 0")
	case n.MailboxSize <= 0 || n.SendQueueSize <= 0:
		return errors.New("network.mailbox_size and network.send_queue_size must be > 0")
	case n.HeartbeatInterval <= 0 || n.ClientTimeout < n.HeartbeatInterval:
		return errors.New("network.client_timeout must be >= heartbeat_interval > 0")
	case n.WriteTimeout <= 0 || n.JoinTimeout <= 0:
		return errors.New("network.write_timeout and network.join_timeout must be > 0")
	}
	if _, err := NewSnapshotCodec(n.SnapshotCodec); err != nil {
		return err
	}
	return nil
}
