package api

import (
	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/smartbundles/bundles-server/internal/errors"
	"github.com/smartbundles/bundles-server/internal/http/response"
	"github.com/smartbundles/bundles-server/internal/store"
)

// EnvelopeVersion is the response envelope format version, sent as "v".
// Clients reject envelopes with a version they do not know.
const EnvelopeVersion = response.Version

// APIEnvelope wraps every successful response and simple errors.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// APIErrorEnvelope wraps errors that carry structured details, such as
// per-field validation failures or the keys of a failed cart update.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case APIEnvelope, APIErrorEnvelope:
		return v, nil
	case *APIError:
		return errorEnvelope(body.Code, body.Message, body.Details), nil
	case *domainerrors.Error:
		return errorEnvelope(string(body.Code), body.Message, body.Details), nil
	case *store.Error:
		return errorEnvelope(statusToCode(body.Code), body.Message, nil), nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Error: body.Error()}, nil
	}

	return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
}

func errorEnvelope(code, message string, details any) any {
	if details != nil {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    code,
			Message: message,
			Details: details,
		}
	}
	return APIEnvelope{Version: EnvelopeVersion, Error: message, Code: code}
}
