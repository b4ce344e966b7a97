package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"binderflow/backend/internal/logging"
)

// progressEvery is how many polls pass between progress log lines.
const progressEvery = 6

var errPending = errors.New("job still pending")

// PollPolicy bounds the wait for an accepted job.
type PollPolicy struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// Ceiling is the longest a job may run under p.
func (p PollPolicy) Ceiling() time.Duration {
	return time.Duration(p.attempts()) * p.Interval
}

func (p PollPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// AwaitResult submits spec and, if the service accepts it for later, polls
// until the job completes, fails, or the policy runs out of attempts.
func AwaitResult(ctx context.Context, client PredictionClient, spec JobSpec, policy PollPolicy, logger *logging.Logger) (Payload, error) {
	res, err := client.Submit(ctx, spec)
	if err != nil {
		return Payload{}, err
	}
	if res.Kind != SubmitAccepted {
		return res.Payload, nil
	}
	logger.Info("job accepted, polling", "model", spec.Model, "request_id", res.Handle.ID,
		"interval", policy.Interval, "max_attempts", policy.attempts())
	return AwaitJob(ctx, client, res.Handle, policy, logger)
}

// AwaitJob polls handle on a fixed interval. The first poll is immediate.
// Pending results and transient poll errors both consume an attempt; running
// out of attempts yields a *TimeoutError, a service-reported failure a
// *ServiceError, and cancellation the context's error.
func AwaitJob(ctx context.Context, client PredictionClient, handle JobHandle, policy PollPolicy, logger *logging.Logger) (Payload, error) {
	var (
		payload  Payload
		attempts int
		lastErr  error
	)
	start := time.Now()

	operation := func() error {
		attempts++
		if attempts%progressEvery == 0 {
			logger.Info("still polling", "model", handle.Model, "request_id", handle.ID,
				"attempt", attempts, "elapsed", time.Since(start).Round(time.Second))
		}

		res, err := client.Poll(ctx, handle)
		if err != nil {
			lastErr = err
			logger.Debug("transient poll error", "request_id", handle.ID, "attempt", attempts, "error", err)
			return err
		}
		lastErr = nil

		switch res.State {
		case PollCompleted:
			if res.Payload != nil {
				payload = *res.Payload
				return nil
			}
			p, err := client.Fetch(ctx, handle)
			if err != nil {
				lastErr = err
				return err
			}
			payload = p
			return nil
		case PollFailed:
			return backoff.Permanent(&ServiceError{Model: handle.Model, Message: res.Message})
		default:
			return errPending
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), uint64(policy.attempts()-1)),
		ctx,
	)
	err := backoff.Retry(operation, b)
	if err == nil {
		logger.Info("job completed", "model", handle.Model, "request_id", handle.ID,
			"attempts", attempts, "elapsed", time.Since(start).Round(time.Second))
		return payload, nil
	}

	var svcErr *ServiceError
	switch {
	case errors.As(err, &svcErr):
		return Payload{}, svcErr
	case ctx.Err() != nil:
		return Payload{}, fmt.Errorf("polling %s cancelled: %w", handle.ID, ctx.Err())
	default:
		return Payload{}, &TimeoutError{
			Model:    handle.Model,
			Attempts: attempts,
			Waited:   time.Since(start),
			LastErr:  lastErr,
		}
	}
}
