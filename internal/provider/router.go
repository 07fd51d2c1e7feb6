package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/logging"
)

// Router applies the retry policy on top of a Backend:
//
//   - up to MaxRetries attempts, each bounded by Timeout
//   - authentication and invalid-request failures stop immediately
//   - rate-limit and upstream failures try the backup model once per attempt
//   - RetryDelay between attempts
type Router struct {
	backend    Backend
	primary    string
	backup     string
	maxRetries int
	delay      time.Duration
	timeout    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	log        zerolog.Logger
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithSleep replaces the inter-attempt wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RouterOption {
	return func(r *Router) { r.sleep = fn }
}

func NewRouter(b Backend, cfg Config, opts ...RouterOption) *Router {
	cfg = cfg.WithDefaults()
	r := &Router{
		backend:    b,
		primary:    cfg.PrimaryModel,
		backup:     cfg.BackupModel,
		maxRetries: cfg.MaxRetries,
		delay:      cfg.RetryDelay,
		timeout:    cfg.Timeout,
		sleep:      sleepContext,
		log:        logging.With("provider"),
	}
	if r.backup == r.primary {
		r.backup = ""
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Model is the primary model id.
func (r *Router) Model() string { return r.primary }

// Backup is the backup model id, or "".
func (r *Router) Backup() string { return r.backup }

// Backend exposes the wrapped backend.
func (r *Router) Backend() Backend { return r.backend }

// Complete sends msgs until a non-empty reply arrives or the policy gives up.
// A non-retryable failure carries errs.CodeProviderAuthInvalid; exhaustion
// carries errs.CodeProviderAllModelsFailed.
func (r *Router) Complete(ctx context.Context, msgs []Message) (string, error) {
	var (
		lastErr error
		tried   = []string{r.primary}
	)
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		out, err := r.send(ctx, r.primary, msgs)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err

		if isFatal(err) {
			return "", fatalError(err, r.primary)
		}

		if r.backup != "" && isSwitchable(err) {
			r.log.Warn().Err(err).Str("model", r.primary).Str("backup", r.backup).
				Msg("primary model unavailable, trying backup")
			if len(tried) == 1 {
				tried = append(tried, r.backup)
			}
			out, berr := r.send(ctx, r.backup, msgs)
			if berr == nil {
				r.log.Info().Str("model", r.backup).Msg("backup model succeeded")
				return out, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			r.log.Warn().Err(berr).Str("model", r.backup).Msg("backup model also failed")
			lastErr = berr
			if isFatal(berr) {
				return "", fatalError(berr, r.backup)
			}
		}

		if attempt < r.maxRetries {
			r.log.Warn().Err(lastErr).Int("attempt", attempt).Int("max_retries", r.maxRetries).
				Dur("delay", r.delay).Msg("retrying model request")
			if err := r.sleep(ctx, r.delay); err != nil {
				return "", err
			}
		}
	}
	return "", errs.New(errs.CodeProviderAllModelsFailed,
		fmt.Sprintf("All models failed after %d attempts. Models tried: %s. Last error: %v",
			r.maxRetries, strings.Join(tried, ", "), lastErr),
		errs.Field("attempts", r.maxRetries))
}

// fatalError re-codes err as non-retryable. oops reports the innermost code,
// so the cause is flattened into the message instead of wrapped.
func fatalError(err error, model string) error {
	return errs.New(errs.CodeProviderAuthInvalid,
		"model request failed (non-retryable): "+err.Error(),
		errs.FieldModel(model), errs.Field("status", statusOf(err)))
}

func (r *Router) send(ctx context.Context, model string, msgs []Message) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	out, err := r.backend.Send(reqCtx, model, msgs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", errs.Wrapf(err, errs.CodeProviderUpstreamFailure,
				"request to %s timed out after %s", model, r.timeout)
		}
		return "", err
	}
	if out == "" {
		return "", errs.New(errs.CodeProviderResponseEmpty,
			fmt.Sprintf("model %s returned empty response", model), errs.FieldModel(model))
	}
	return out, nil
}

// isFatal reports failures that no retry can fix.
func isFatal(err error) bool {
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"invalid", "authentication", "api_key"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// isSwitchable reports rate-limit and upstream failures worth trying on the
// backup model.
func isSwitchable(err error) bool {
	if statusOf(err) == http.StatusTooManyRequests {
		return true
	}
	raw := err.Error()
	msg := strings.ToLower(raw)
	return strings.Contains(raw, "429") ||
		strings.Contains(msg, "rate") ||
		strings.Contains(msg, "limit") ||
		strings.Contains(msg, "provider") ||
		strings.Contains(msg, "upstream")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
