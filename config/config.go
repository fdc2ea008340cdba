package config

import (
	"fmt"
	"net"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	ControlPlane ControlPlane
	Credential   Credential
	Provision    Provision
	Catalog      Catalog
}

type ControlPlane struct {
	Node string
}

type Credential struct {
	User           string
	PrivateKeyPath string `mapstructure:"private_key_path"`
	Password       string
}

type Provision struct {
	Bridge      string
	Pool        string
	Gateway     net.IP
	TemplateIP  net.IP `mapstructure:"template_ip"`
	Concurrency int
}

type Catalog struct {
	Source  string
	Storage string
}

func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigType("yaml")
	viper.SetConfigName("clonectl")

	if err := viper.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{}

	if err := viper.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToIPHookFunc(),
			mapstructure.StringToIPNetHookFunc(),
		))); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
