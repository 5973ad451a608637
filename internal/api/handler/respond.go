// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/util"
)

// DefaultTimeout bounds every request handled by the router.
const DefaultTimeout = 30 * time.Second

var validate = validator.New()

// responder holds the JSON helpers shared by all handlers.
type responder struct {
	logger *slog.Logger
}

// Helper function to send JSON responses.
func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h responder) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	body := types.ErrorBody{Kind: string(util.KindInternal), Message: "Internal server error"}
	var appErr *util.Error
	if errors.As(err, &appErr) {
		body = types.ErrorBody{Kind: string(appErr.Kind), Message: appErr.Message, Details: appErr.Details}
	}

	statusCode := statusFor(util.KindOf(err))
	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.respondWithJSON(w, statusCode, types.ErrorResponse{Error: body})
}

func statusFor(kind util.Kind) int {
	switch kind {
	case util.KindValidation:
		return http.StatusBadRequest
	case util.KindUnauthorized:
		return http.StatusUnauthorized
	case util.KindForbidden:
		return http.StatusForbidden
	case util.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case util.KindNotFound:
		return http.StatusNotFound
	case util.KindConflict:
		return http.StatusConflict
	case util.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorWriter renders errors raised outside a handler, such as by the auth
// middleware, in the same shape as handler errors.
func ErrorWriter(logger *slog.Logger) auth.ErrorWriter {
	return responder{logger: logger}.respondWithError
}

// decodeBody reads a JSON body into dst and runs its validate tags.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return util.Validation("invalid request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return util.Validation("invalid request body: %v", err)
		}
		fields := make(map[string]any, len(fieldErrs))
		names := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Namespace()] = fe.Tag()
			names = append(names, fe.Field())
		}
		appErr := util.Validation("invalid fields: %s", strings.Join(names, ", "))
		appErr.Details = fields
		return appErr
	}
	return nil
}

// callerID is the account resolved by the auth middleware.
func callerID(r *http.Request) (uuid.UUID, error) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, util.Unauthorized("missing identity")
	}
	return accountID, nil
}

// pathUUID parses a UUID route parameter.
func pathUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, util.Validation("invalid %s: %s", name, raw)
	}
	return id, nil
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// pagination reads limit and offset. Bad or missing values fall back to the
// defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginated[T any](data []T, limit, offset int, total int64) types.PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	return types.PaginatedResponse[T]{Data: data, Limit: limit, Offset: offset, TotalCount: total}
}
