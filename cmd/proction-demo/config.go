package main

import (
	"github.com/BurntSushi/toml"
)

// config holds proction-demo's settings, loadable from a TOML file via
// --config.
type config struct {
	Concurrency int    `toml:"concurrency"`
	Scheduler   string `toml:"scheduler"`
}

func defaultConfig() config {
	return config{Concurrency: 4, Scheduler: "inline"}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}
