// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is used when neither a path nor AGENTWARDAN_CONFIG is given.
const DefaultConfigPath = "configs/api.yaml"

// DefaultSystemPrompt opens every new session transcript.
const DefaultSystemPrompt = "You are AgentWardan, the hostel administration assistant. " +
	"Use the tools to manage students, rooms and payments. Never guess between several matching students; " +
	"ask the user to pick one. Deleting requires explicit confirmation. " +
	"Answer with a JSON object {\"summary\": string, \"data\": array}."

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Model      ModelConfig      `mapstructure:"model"`
	Session    SessionConfig    `mapstructure:"session"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Timeout string     `mapstructure:"timeout"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AgentConfig controls the turn graph.
type AgentConfig struct {
	SystemPrompt  string `mapstructure:"system_prompt"`
	MaxHistory    int    `mapstructure:"max_history"`     // messages kept after the system message
	MaxPlanSteps  int    `mapstructure:"max_plan_steps"`  // longer plans are truncated
	ToolLoop      string `mapstructure:"tool_loop"`       // loop | single
	MaxToolRounds int    `mapstructure:"max_tool_rounds"` // cap for tool_loop=loop
	ToolTimeout   string `mapstructure:"tool_timeout"`    // e.g. "20s"
	StepTimeout   string `mapstructure:"step_timeout"`    // one executor step, e.g. a whole bulk update
	OracleTimeout string `mapstructure:"oracle_timeout"`  // e.g. "60s"
	PreviewLimit  int    `mapstructure:"preview_limit"`   // records shown to the oracle per tool result
}

// BackendConfig is the hostel CRUD API the tools talk to.
type BackendConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Timeout   string `mapstructure:"timeout"`
	Retries   int    `mapstructure:"retries"`
	RetryWait string `mapstructure:"retry_wait"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	Dimension   int     `mapstructure:"dimension"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DefaultsConfig names the default models as "provider.model_key".
type DefaultsConfig struct {
	LLM       string `mapstructure:"llm"`
	Embedding string `mapstructure:"embedding"`
}

// SessionConfig selects the transcript store.
type SessionConfig struct {
	Type     string         `mapstructure:"type"` // memory | redis | postgres
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       string `mapstructure:"ttl"` // 空表示不过期
	Index     string `mapstructure:"index"`
}

// PostgresConfig Postgres 连接配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// KnowledgeConfig backs the hostel_info tool.
type KnowledgeConfig struct {
	Type        string      `mapstructure:"type"` // memory | redis
	Documents   []string    `mapstructure:"documents"`
	TopK        int         `mapstructure:"top_k"`
	SeedOnStart bool        `mapstructure:"seed_on_start"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// SecretsConfig selects where API keys are resolved from.
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | vault
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig HashiCorp Vault 配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// RateLimitsConfig 限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("AGENTWARDAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", configPath, err)
	}

	replaceEnvVars(&config)
	applyLegacyEnv(&config)
	return &config, nil
}

// LoadAPIConfig loads AGENTWARDAN_CONFIG, falling back to configs/api.yaml.
func LoadAPIConfig() (*Config, error) {
	path := os.Getenv("AGENTWARDAN_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadConfig(path)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("agent.system_prompt", DefaultSystemPrompt)
	v.SetDefault("agent.max_history", 40)
	v.SetDefault("agent.max_plan_steps", 25)
	v.SetDefault("agent.tool_loop", "loop")
	v.SetDefault("agent.max_tool_rounds", 5)
	v.SetDefault("agent.tool_timeout", "20s")
	v.SetDefault("agent.step_timeout", "120s")
	v.SetDefault("agent.oracle_timeout", "60s")
	v.SetDefault("agent.preview_limit", 10)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "20s")
	v.SetDefault("backend.retries", 2)
	v.SetDefault("backend.retry_wait", "500ms")
	v.SetDefault("session.type", "memory")
	v.SetDefault("knowledge.type", "memory")
	v.SetDefault("knowledge.top_k", 3)
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// replaceEnvVars expands "${VAR}" references in secret-bearing fields.
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		providerConfig.BaseURL = expandEnv(providerConfig.BaseURL)
		config.Model.LLM.Providers[provider] = providerConfig
	}
	for provider, providerConfig := range config.Model.Embedding.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		providerConfig.BaseURL = expandEnv(providerConfig.BaseURL)
		config.Model.Embedding.Providers[provider] = providerConfig
	}
	config.Backend.BaseURL = expandEnv(config.Backend.BaseURL)
	config.Session.Postgres.DSN = expandEnv(config.Session.Postgres.DSN)
	config.Session.Redis.Password = expandEnv(config.Session.Redis.Password)
	config.Knowledge.Redis.Password = expandEnv(config.Knowledge.Redis.Password)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}

// expandEnv resolves a whole-value "${VAR}" reference; unset variables yield "".
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}"))
}

// applyLegacyEnv honours the variables the hostel service has always read.
func applyLegacyEnv(config *Config) {
	if v := os.Getenv("HMS_API_BASE"); v != "" {
		config.Backend.BaseURL = v
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			config.Backend.Timeout = (time.Duration(secs * float64(time.Second))).String()
		}
	}
	if v := os.Getenv("HTTP_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Backend.Retries = n
		}
	}
	if p, ok := config.Model.LLM.Providers["groq"]; ok {
		if p.APIKey == "" {
			p.APIKey = os.Getenv("GROQ_API_KEY")
		}
		if m := os.Getenv("GROQ_MODEL"); m != "" {
			for key, info := range p.Models {
				info.Name = m
				p.Models[key] = info
			}
		}
		config.Model.LLM.Providers["groq"] = p
	}
}

// ParseDuration parses s, returning def when s is empty or invalid.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ParseDefaultKey 解析 "provider.model_key" 形式的默认模型配置
func ParseDefaultKey(key string) (provider, modelKey string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid default model key %q, want provider.model_key", key)
	}
	return parts[0], parts[1], nil
}
