package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayo6706/cashdesk/internal/api/middleware"
	"github.com/ayo6706/cashdesk/internal/api/problem"
	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/gateway"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/ayo6706/cashdesk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == domain.RoleAdmin, nil
}

// actorOrReject writes 401 and reports false when the caller has no usable identity.
func actorOrReject(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return uuid.Nil, false
	}
	return actorID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return false
	}
	return true
}

type page struct {
	Status string
	Limit  int32
	Offset int32
}

func parsePage(w http.ResponseWriter, r *http.Request) (page, bool) {
	p := page{Status: strings.TrimSpace(r.URL.Query().Get("status")), Limit: defaultPageLimit}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limit must be a positive integer")
			return p, false
		}
		if parsed > maxPageLimit {
			parsed = maxPageLimit
		}
		p.Limit = int32(parsed)
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 32)
		if err != nil || parsed < 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-offset", "offset must be a non-negative integer")
			return p, false
		}
		p.Offset = int32(parsed)
	}
	return p, true
}

func respondPage(w http.ResponseWriter, p page, items any, count int) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  p.Limit,
		"offset": p.Offset,
		"count":  count,
	})
}

type errorMapping struct {
	err    error
	status int
	slug   string
}

// serviceErrors maps sentinel errors to HTTP answers. Validation failures are 400/422,
// stale state is 409.
var serviceErrors = []errorMapping{
	{repository.ErrNotFound, http.StatusNotFound, "resource/not-found"},
	{repository.ErrUnknownEntity, http.StatusBadRequest, "lock/unknown-entity"},

	{domain.ErrInvalidAmount, http.StatusBadRequest, "request/invalid-amount"},
	{domain.ErrAmountPrecision, http.StatusBadRequest, "request/invalid-amount"},
	{domain.ErrAmountOutOfRange, http.StatusBadRequest, "request/invalid-amount"},
	{domain.ErrConfirmationMismatch, http.StatusBadRequest, "request/confirmation-mismatch"},
	{service.ErrInvalidModal, http.StatusBadRequest, "lock/invalid-modal"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "request/invalid-status"},
	{service.ErrSettlementRequired, http.StatusBadRequest, "payment/settlement-required"},
	{service.ErrInvalidMatchType, http.StatusBadRequest, "recharge/invalid-match-type"},
	{service.ErrReasonRequired, http.StatusBadRequest, "request/reason-required"},
	{service.ErrScreenshotRequired, http.StatusBadRequest, "recharge/screenshot-required"},
	{service.ErrInvalidTagStatus, http.StatusBadRequest, "company-tag/invalid-status"},
	{service.ErrCashtagRequired, http.StatusBadRequest, "company-tag/cashtag-required"},

	{service.ErrNotOperationOwner, http.StatusForbidden, "payment/not-owner"},

	{service.ErrPaymentMethodMismatch, http.StatusUnprocessableEntity, "payment/method-mismatch"},
	{service.ErrAssignExceedsRecharge, http.StatusUnprocessableEntity, "recharge/assign-exceeds-amount"},
	{service.ErrTagLimitExceeded, http.StatusUnprocessableEntity, "company-tag/limit-exceeded"},

	{service.ErrLockHeld, http.StatusConflict, "lock/held"},
	{service.ErrLockNotHeld, http.StatusConflict, "lock/not-held"},
	{domain.ErrAmountUnavailable, http.StatusConflict, "redeem/amount-unavailable"},
	{domain.ErrExceedsTotal, http.StatusConflict, "redeem/exceeds-total"},
	{domain.ErrExceedsHeld, http.StatusConflict, "redeem/exceeds-held"},
	{service.ErrRedeemNotPayable, http.StatusConflict, "redeem/not-payable"},
	{service.ErrOperationNotOpen, http.StatusConflict, "payment/not-open"},
	{service.ErrOperationNotConfirmable, http.StatusConflict, "payment/not-confirmable"},
	{service.ErrRechargeNotPending, http.StatusConflict, "recharge/not-pending"},
	{service.ErrAlreadyAssigned, http.StatusConflict, "recharge/already-assigned"},
	{service.ErrAlreadyAssignedToTag, http.StatusConflict, "recharge/already-assigned-to-tag"},
	{service.ErrInvalidTransition, http.StatusConflict, "state/invalid-transition"},
	{service.ErrTransferNotPending, http.StatusConflict, "transfer/not-pending"},
	{service.ErrNotVerificationPending, http.StatusConflict, "verification/not-pending"},
	{gateway.ErrTagNotActive, http.StatusConflict, "company-tag/not-active"},
	{gateway.ErrInsufficientTagBalance, http.StatusConflict, "company-tag/insufficient-balance"},
}

// writeServiceError answers err with the matching problem type, or logs it and answers 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var settleErr *service.SettlementError
	if errors.As(err, &settleErr) {
		RespondError(w, r, http.StatusBadGateway, "payment/settlement-failed", settleErr.Error())
		return
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			RespondError(w, r, m.status, m.slug, err.Error())
			return
		}
	}
	if status, problemType, message, ok := mapDBError(err); ok {
		RespondError(w, r, status, problemType, message)
		return
	}
	zap.L().Error(operation+" failed", zap.Error(err), zap.String("path", r.URL.Path))
	RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "Failed to "+operation)
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusConflict, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
