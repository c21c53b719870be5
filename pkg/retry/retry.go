// Package retry 提供远程调用的超时与指数退避重试
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/metrics"
)

// Classifier 判断错误是否为瞬时错误（可重试）
type Classifier func(error) bool

// Policy 单次远程调用的重试策略
type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// PerCallTimeout 每次尝试的超时；0 表示不单独限制
	PerCallTimeout time.Duration
	// IsTransient 业务相关的瞬时错误判断，与网络层判断取并集
	IsTransient Classifier
	// exclusive 为 true 时只认 IsTransient，网络超时不重试
	exclusive bool
}

// DefaultPolicy 默认策略：最多 3 次尝试
func DefaultPolicy() Policy {
	return Policy{
		MaxTries:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		PerCallTimeout:  60 * time.Second,
	}
}

// WithClassifier 返回替换了瞬时错误判断的策略副本
func (p Policy) WithClassifier(c Classifier) Policy {
	p.IsTransient = c
	return p
}

// OnlyWhen 返回只在 c 成立时重试的策略副本，用于非幂等调用：
// 超时的请求可能已在服务端生效，不能再发一次
func (p Policy) OnlyWhen(c Classifier) Policy {
	p.IsTransient = c
	p.exclusive = true
	return p
}

// Do 以策略执行 fn；非瞬时错误立即返回，瞬时错误按指数退避重试
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		if attempt > 1 {
			metrics.RemoteCallRetries.WithLabelValues(op).Inc()
		}

		callCtx := ctx
		cancel := func() {}
		if p.PerCallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.PerCallTimeout)
		}
		defer cancel()

		res, err := fn(callCtx)
		if err == nil {
			return res, nil
		}
		// 调用方放弃等待时不再重试
		if ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		if !p.transient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn(ctx, "remote call failed, retrying",
				"operation", op,
				"attempt", attempt,
				"next_in", next.String(),
				"error", err.Error(),
			)
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return res, err
}

func (p Policy) transient(err error) bool {
	if !p.exclusive && IsNetworkTransient(err) {
		return true
	}
	return p.IsTransient != nil && p.IsTransient(err)
}

// IsNetworkTransient 判断网络层瞬时错误：超时、连接重置、意外断开
func IsNetworkTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsTransientStatus 判断 HTTP 状态码是否值得重试：429 与 5xx
func IsTransientStatus(code int) bool {
	return code == 429 || (code >= 500 && code <= 599)
}
