package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	logx "proxybot/pkg/logx"
)

// ErrNotAdmin is returned by RequireAdmin after the caller has been told so.
var ErrNotAdmin = errors.New("not an admin")

const (
	DeniedCommandText  = "❌ You are not authorized to use this command."
	DeniedCallbackText = "❌ Admin only"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] != nil {
			h = m[i](h)
		}
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Logger.IsZero() {
						logger = req.Logger
					}
					logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			logger := log
			if !req.Logger.IsZero() {
				logger = req.Logger
			}
			err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{
				logx.String("kind", string(req.Update.Kind)),
				logx.Int64("chat_id", req.Chat.ChatID),
				logx.Int64("from_id", req.FromID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", d),
			}
			switch {
			case errors.Is(err, ErrNotAdmin):
				logger.Debug("request denied", fields...)
			case err != nil:
				logger.Warn("request failed", append(fields, logx.Err(err))...)
			case d >= 750*time.Millisecond:
				logger.Info("request ok", fields...)
			default:
				logger.Debug("request ok", fields...)
			}
			return err
		}
	}
}

// RequireAdmin rejects callers outside admins. Commands get a reply, callbacks
// an answer; next never runs for them.
func RequireAdmin(admins []int64) Middleware {
	allowed := slices.Clone(admins)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if slices.Contains(allowed, req.FromID) {
				return next(ctx, req)
			}
			if req.IsCallback() {
				_ = req.Answer(ctx, DeniedCallbackText)
			} else {
				_, _ = req.Reply(ctx, DeniedCommandText, nil)
			}
			return ErrNotAdmin
		}
	}
}
