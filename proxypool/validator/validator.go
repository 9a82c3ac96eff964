package validator

import (
	"context"
	"time"

	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/internal/shared/request"
)

const (
	defaultJudgeTimeout       = 3 * time.Second
	defaultSecondCheckTimeout = 6 * time.Second
)

// Doer is the transport the checker sends its probes through.
type Doer interface {
	Do(ctx context.Context, req request.Request) *request.Response
}

// Checker 通过 judge 列表判断一个代理是否可用。
// judge 按顺序尝试, 第一个返回 200 的 judge 决定结果: 未配置二次验证站点时直接判定可用,
// 否则二次验证站点也必须返回 200, 失败时继续尝试下一个 judge。
type Checker struct {
	doer               Doer
	judges             []string
	secondCheckURL     string
	judgeTimeout       time.Duration
	secondCheckTimeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithSecondCheck requires an additional 200 from url through the proxy.
func WithSecondCheck(url string) Option {
	return func(c *Checker) {
		c.secondCheckURL = url
	}
}

// WithTimeouts sets the judge and second-check timeouts.
func WithTimeouts(judge, secondCheck time.Duration) Option {
	return func(c *Checker) {
		if judge > 0 {
			c.judgeTimeout = judge
		}
		if secondCheck > 0 {
			c.secondCheckTimeout = secondCheck
		}
	}
}

// New creates a Checker probing through doer against judges.
func New(doer Doer, judges []string, opts ...Option) *Checker {
	c := &Checker{
		doer:               doer,
		judges:             append([]string(nil), judges...),
		judgeTimeout:       defaultJudgeTimeout,
		secondCheckTimeout: defaultSecondCheckTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Judges returns the judge endpoints in probe order.
func (c *Checker) Judges() []string {
	return append([]string(nil), c.judges...)
}

// Check 对单个候选代理做存活验证。任何错误(包括 panic)都归结为 false。
func (c *Checker) Check(ctx context.Context, candidate string) (alive bool) {
	l := logger.WithComponent("ProxyPool/Validator")
	defer func() {
		if r := recover(); r != nil {
			l.Warn().Str("proxy", candidate).Interface("panic", r).Msg("Check panicked, treating proxy as dead.")
			alive = false
		}
	}()

	for _, judge := range c.judges {
		if ctx.Err() != nil {
			return false
		}

		resp := c.doer.Do(ctx, request.Request{
			URL:        judge,
			Proxy:      candidate,
			Timeout:    c.judgeTimeout,
			NoRedirect: true,
		})
		if !resp.OK() {
			continue
		}

		if c.secondCheckURL == "" {
			l.Debug().Str("proxy", candidate).Str("judge", judge).Msg("Proxy passed judge.")
			return true
		}

		second := c.doer.Do(ctx, request.Request{
			URL:        c.secondCheckURL,
			Proxy:      candidate,
			Timeout:    c.secondCheckTimeout,
			NoRedirect: true,
		})
		if second.OK() {
			l.Debug().Str("proxy", candidate).Str("judge", judge).Msg("Proxy passed judge and second check.")
			return true
		}
	}
	return false
}
