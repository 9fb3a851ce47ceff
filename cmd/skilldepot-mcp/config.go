package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MCPSD"

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"http://localhost:3200"`
}

func NewConfig() (*Config, error) {
	c := &Config{}
	err := envconfig.Process(envPrefix, c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return c, nil
}
