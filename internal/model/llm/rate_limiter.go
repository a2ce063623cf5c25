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

package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LimitConfig 单个 oracle provider 的限流配置
type LimitConfig struct {
	RequestsPerMinute float64 // 每分钟请求数，0 表示不限
	Burst             int     // 令牌桶容量，0 时取 2 秒配额
	MaxConcurrent     int     // 最大并发请求数，0 表示不限
}

// RateLimiter 按 provider 维度限流：RPM 令牌桶 + 并发信号量
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*providerLimiter
	defaults LimitConfig
}

type providerLimiter struct {
	requests  *rate.Limiter
	semaphore chan struct{}
}

// NewRateLimiter creates a limiter. Providers not listed in configs use defaults.
func NewRateLimiter(configs map[string]LimitConfig, defaults LimitConfig) *RateLimiter {
	l := &RateLimiter{limiters: make(map[string]*providerLimiter), defaults: defaults}
	for provider, c := range configs {
		l.limiters[provider] = newProviderLimiter(c)
	}
	return l
}

func newProviderLimiter(c LimitConfig) *providerLimiter {
	pl := &providerLimiter{}
	if c.RequestsPerMinute > 0 {
		rps := c.RequestsPerMinute / 60.0
		burst := c.Burst
		if burst <= 0 {
			burst = int(rps * 2) // 2 秒的配额
		}
		if burst < 1 {
			burst = 1
		}
		pl.requests = rate.NewLimiter(rate.Limit(rps), burst)
	}
	if c.MaxConcurrent > 0 {
		pl.semaphore = make(chan struct{}, c.MaxConcurrent)
	}
	return pl
}

func (l *RateLimiter) get(provider string) *providerLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl, ok := l.limiters[provider]
	if !ok {
		pl = newProviderLimiter(l.defaults)
		l.limiters[provider] = pl
	}
	return pl
}

// Wait blocks until provider may issue one request. Every successful Wait must be paired with Release.
func (l *RateLimiter) Wait(ctx context.Context, provider string) error {
	pl := l.get(provider)
	if pl.requests != nil {
		if err := pl.requests.Wait(ctx); err != nil {
			return fmt.Errorf("oracle rate limit wait: %w", err)
		}
	}
	if pl.semaphore != nil {
		select {
		case pl.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发 slot
func (l *RateLimiter) Release(provider string) {
	pl := l.get(provider)
	if pl.semaphore == nil {
		return
	}
	select {
	case <-pl.semaphore:
	default:
	}
}

// InFlight reports the number of held concurrency slots for provider.
func (l *RateLimiter) InFlight(provider string) int {
	pl := l.get(provider)
	if pl.semaphore == nil {
		return 0
	}
	return len(pl.semaphore)
}
