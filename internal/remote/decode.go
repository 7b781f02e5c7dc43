package remote

import (
	"context"
	"errors"
	"regexp"

	"github.com/sony/gobreaker"

	"loom-engine/internal/apperrors"
)

// The PostgREST client surfaces server failures as "(<code>) <message>",
// where code is the Postgres SQLSTATE or a PGRST code. We decode the code
// token once here; control flow never matches on message text.
var remoteCodePattern = regexp.MustCompile(`^\((\w+)\)`)

// SQLSTATE / PostgREST codes the engine gives distinct treatment.
const (
	// program_limit_exceeded: raised by the quota triggers guarding
	// per-tier folder and item counts.
	codeQuotaExceeded = "54000"
	// PostgREST: no (or more than one) row matched a single-object request.
	codeNoRows = "PGRST116"
	// foreign_key_violation: the referenced folder is gone.
	codeForeignKey = "23503"
)

// decodeError classifies a failure from the remote boundary into the
// engine's typed error kinds.
func decodeError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("REMOTE_TIMEOUT", "remote call exceeded its deadline").
			WithOperation(op).WithCause(err).Build()
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Network("REMOTE_CANCELED", "remote call canceled").
			WithOperation(op).WithCause(err).Build()
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Network("CIRCUIT_OPEN", "remote temporarily unavailable").
			WithOperation(op).WithCause(err).Build()
	}

	if m := remoteCodePattern.FindStringSubmatch(err.Error()); m != nil {
		switch m[1] {
		case codeQuotaExceeded:
			return apperrors.Quota("TIER_LIMIT", "plan limit reached").
				WithOperation(op).WithCause(err).Build()
		case codeNoRows:
			return apperrors.NotFound("REMOTE_NOT_FOUND", "record no longer exists").
				WithOperation(op).WithCause(err).Build()
		case codeForeignKey:
			return apperrors.NotFound("FOLDER_GONE", "referenced folder no longer exists").
				WithOperation(op).WithCause(err).Build()
		}
	}

	return apperrors.Network("REMOTE_ERROR", "remote call failed").
		WithOperation(op).WithCause(err).Build()
}
