package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/api"
	"github.com/agentfleet/controlplane/internal/pool"
	"github.com/agentfleet/controlplane/types"
)

// WriteJSON writes data as a JSON body with the given status code. The
// encode happens into a pooled buffer so the Content-Length is known up
// front and the buffer backing every response doesn't get reallocated
// per request.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	buf := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(data); err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// WriteSuccess writes a 200 response wrapping data in the canonical envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, api.Response{Success: true, Data: data, Timestamp: time.Now()})
}

// WriteCreated writes a 201 response wrapping data in the canonical envelope.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, api.Response{Success: true, Data: data, Timestamp: time.Now()})
}

// WriteError writes err as a structured error response, logging it first.
// A non-*types.Error is wrapped as an internal error.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	fleetErr, ok := err.(*types.Error)
	if !ok {
		fleetErr = types.NewError("INTERNAL_ERROR", err.Error())
	}

	status := mapErrorCodeToHTTPStatus(fleetErr.Code)

	if logger != nil {
		logger.Warn("API error",
			zap.String("code", string(fleetErr.Code)),
			zap.String("message", fleetErr.Message),
			zap.Int("status", status),
		)
	}

	WriteJSON(w, status, api.Response{
		Success: false,
		Error: &api.ErrorInfo{
			Code:    string(fleetErr.Code),
			Message: fleetErr.Message,
			Errors:  fleetErr.Errors,
		},
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage writes a simple error response built from a code and message.
func WriteErrorMessage(w http.ResponseWriter, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message), logger)
}

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRegistration:
		return http.StatusBadRequest
	case types.ErrAgentNotFound, types.ErrDeploymentNotFound, types.ErrRollbackNotFound, types.ErrJobNotFound,
		types.ErrCapabilityNotFound, types.ErrTaskNotFound:
		return http.StatusNotFound
	case types.ErrRegistrationConflict, types.ErrInvalidLifecycleTransition, types.ErrCapabilityVersionConflict:
		return http.StatusConflict
	case types.ErrOperationTimeout:
		return http.StatusGatewayTimeout
	case types.ErrTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody decodes a JSON request body into dst, rejecting unknown
// fields and bodies over 1 MB. On failure it writes the error response
// itself and returns it so callers can simply return on a non-nil error.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil {
		err := types.NewError(types.ErrInvalidRegistration, "request body is empty")
		WriteError(w, err, logger)
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		apiErr := types.NewError(types.ErrInvalidRegistration, "invalid JSON body").WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}

// PageParams is the parsed limit/offset pair shared by every list endpoint.
type PageParams struct {
	Limit  int
	Offset int
}

// ParsePageParams reads "limit" and "offset" query parameters, defaulting
// to 0 (no limit) and 0 respectively. Malformed values are treated as unset
// rather than rejected.
func ParsePageParams(r *http.Request) PageParams {
	var p PageParams
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Offset = n
		}
	}
	return p
}
