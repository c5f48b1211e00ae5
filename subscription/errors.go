package subscription

import (
	"errors"

	"github.com/Jyouping/brooklin/internal/natsutil"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Guardrail errors for instance consumer updates.

// ErrMaxSubjectsExceeded indicates the requested subjects exceed MaxSubjects.
var ErrMaxSubjectsExceeded = errors.New("instance consumer subjects exceed MaxSubjects cap")

// ErrInstanceIDMutation indicates instanceID changed while AllowInstanceIDChange=false.
var ErrInstanceIDMutation = errors.New("instanceID mutation is not allowed by configuration")

// classifyConsumerError maps a consumer create/update error to a coarse
// reason so the retry loop in TaskConsumer can decide whether to keep
// retrying or give up immediately.
//
// Classifications:
//   - "not_found": the stream or consumer doesn't exist (404, or the
//     jetstream.ErrConsumerNotFound sentinel) — retrying won't help until
//     the stream is provisioned
//   - "terminal_policy": the server rejected the request as unauthorized
//     or forbidden (401/403) — a config/permissions problem, not transient
//   - "throttle": the server is asking the caller to back off (409/429)
//   - "transient_server": a 5xx, or any connectivity-classified error per
//     internal/natsutil — worth retrying with backoff
//   - "unknown": anything else, including nil
func classifyConsumerError(err error) string {
	if err == nil {
		return "unknown"
	}

	if errors.Is(err, jetstream.ErrConsumerNotFound) || errors.Is(err, jetstream.ErrStreamNotFound) {
		return "not_found"
	}

	var apiErr *nats.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return "terminal_policy"
		case apiErr.Code == 404:
			return "not_found"
		case apiErr.Code == 409 || apiErr.Code == 429:
			return "throttle"
		case apiErr.Code >= 500:
			return "transient_server"
		}
	}

	if natsutil.IsConnectivityError(err) {
		return "transient_server"
	}

	return "unknown"
}

// isTerminalConsumerError reports whether the retry loop should give up
// immediately rather than burn through the remaining attempts.
func isTerminalConsumerError(err error) bool {
	return classifyConsumerError(err) == "terminal_policy"
}
