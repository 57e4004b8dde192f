package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/rs/zerolog/log"
)

// Metadata keys carried on error responses.
const (
	HeaderErrorKind    = "X-Error-Kind"
	HeaderErrorDetails = "X-Error-Details"
)

// CodeFor maps an engine error kind onto a connect code.
func CodeFor(kind apperr.Kind) connect.Code {
	switch kind {
	case apperr.KindValidation:
		return connect.CodeInvalidArgument
	case apperr.KindNotFound:
		return connect.CodeNotFound
	case apperr.KindStateConflict, apperr.KindCooldownActive:
		return connect.CodeFailedPrecondition
	case apperr.KindBudgetInsufficient, apperr.KindSlotsFull:
		return connect.CodeResourceExhausted
	case apperr.KindConcurrencyConflict:
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// Error converts an app error into a connect error. Typed errors keep their
// user-facing message and details. Anything else is logged and hidden.
func Error(err error) error {
	if err == nil {
		return nil
	}
	appErr, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Msg("internal error")
		return connect.NewError(connect.CodeInternal, fmt.Errorf("internal error"))
	}

	cerr := connect.NewError(CodeFor(appErr.Kind), fmt.Errorf("%s", appErr.Message))
	cerr.Meta().Set(HeaderErrorKind, string(appErr.Kind))
	if len(appErr.Details) > 0 {
		if raw, jerr := json.Marshal(appErr.Details); jerr == nil {
			cerr.Meta().Set(HeaderErrorDetails, string(raw))
		}
	}
	return cerr
}

// ParseID parses a uuid request field.
func ParseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid %s: %w", field, err))
	}
	return id, nil
}
