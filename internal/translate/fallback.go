package translate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single translation attempt.
const DefaultTimeout = 2 * time.Second

// Fallback wraps a Translator so that callers always get text back: on
// error or timeout the original text is returned. Identical concurrent
// requests share one upstream call.
type Fallback struct {
	next    Translator
	timeout time.Duration
	group   singleflight.Group
	logger  *zap.Logger

	// OnFallback, if set, is called each time the original text is returned
	// because of a failure.
	OnFallback func(err error)
}

// NewFallback wraps next. A non-positive timeout uses DefaultTimeout.
func NewFallback(next Translator, timeout time.Duration, logger *zap.Logger) *Fallback {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fallback{next: next, timeout: timeout, logger: logger}
}

// Translate returns text in lang, or text unchanged when translation fails.
// The boolean reports whether the upstream translator succeeded.
func (f *Fallback) Translate(ctx context.Context, text, lang string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// The shared call outlives any one caller; each caller still gives up at
	// its own deadline below.
	ch := f.group.DoChan(lang+"\x00"+text, func() (any, error) {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		return f.next.Translate(uctx, text, lang)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			f.fail(res.Err, lang)
			return text, false
		}
		return res.Val.(string), true
	case <-ctx.Done():
		f.fail(ctx.Err(), lang)
		return text, false
	}
}

func (f *Fallback) fail(err error, lang string) {
	f.logger.Warn("translation unavailable, using original text", zap.String("lang", lang), zap.Error(err))
	if f.OnFallback != nil {
		f.OnFallback(err)
	}
}
