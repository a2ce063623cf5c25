// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RefPrefix marks a config value that must be resolved through a Store.
const RefPrefix = "secret:"

// ErrNotFound secret 不存在
var ErrNotFound = errors.New("secret not found")

// Store Secret 读取接口
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string // env | vault | memory
	Vault    VaultConfig
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// Resolve returns value unchanged unless it is a "secret:<key>" reference,
// in which case the key is read from s.
func Resolve(ctx context.Context, s Store, value string) (string, error) {
	if !strings.HasPrefix(value, RefPrefix) {
		return value, nil
	}
	key := strings.TrimPrefix(value, RefPrefix)
	if s == nil {
		return "", fmt.Errorf("secret %q referenced but no secret store configured", key)
	}
	return s.Get(ctx, key)
}
