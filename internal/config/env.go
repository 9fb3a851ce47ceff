package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type DBEnv struct {
	Path string `envconfig:"DB_PATH" default:".skilldepot/skilldepot.db"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".skilldepot/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"skilldepot/"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
}

type SessionEnv struct {
	// memory or yaml. yaml persists staged sessions on the storage backend
	// so they survive a restart.
	StoreType string `envconfig:"SESSION_STORE_TYPE" default:"memory"`
}

type Env struct {
	BaseEnv
	DBEnv
	StorageEnv
	SessionEnv
}

const namespace = "SKILLDEPOT"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func DBEnvFromEnv(env *Env) *DBEnv {
	return &env.DBEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func SessionEnvFromEnv(env *Env) *SessionEnv {
	return &env.SessionEnv
}
