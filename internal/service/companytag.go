package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/legacy"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tagActivityLimit = 100

// LegacyActivitySource supplies cashtag history kept by the legacy API.
type LegacyActivitySource interface {
	Enabled() bool
	CashtagActivity(ctx context.Context, tagID string) ([]legacy.CashtagActivity, error)
}

type CompanyTagService struct {
	store  QueryStore
	legacy LegacyActivitySource
	audit  *AuditService
}

// NewCompanyTagService accepts a nil legacy source.
func NewCompanyTagService(store QueryStore, src LegacyActivitySource) *CompanyTagService {
	return &CompanyTagService{store: store, legacy: src, audit: NewAuditService()}
}

type CreateCompanyTagRequest struct {
	ActorID         uuid.UUID
	Cashtag         string
	PaymentMethod   string
	Balance         domain.Amount
	Limit           domain.Amount
	ProcurementCost domain.Amount
}

// TagActivity combines the local audit trail with legacy history when available.
type TagActivity struct {
	Local       []models.ActivityLog     `json:"local"`
	Legacy      []legacy.CashtagActivity `json:"legacy,omitempty"`
	LegacyError string                   `json:"legacy_error,omitempty"`
}

func (s *CompanyTagService) Create(ctx context.Context, req CreateCompanyTagRequest) (*models.CompanyTag, error) {
	cashtag := strings.TrimSpace(req.Cashtag)
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if cashtag == "" || method == "" {
		return nil, ErrCashtagRequired
	}
	if req.Balance < 0 || req.Limit < 0 || req.ProcurementCost < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.Limit > 0 && req.Balance > req.Limit {
		return nil, ErrTagLimitExceeded
	}

	actor := req.ActorID
	var out *models.CompanyTag
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		out, err = q.CreateCompanyTag(ctx, repository.CreateCompanyTagParams{
			Cashtag:         cashtag,
			PaymentMethod:   method,
			Balance:         req.Balance,
			Limit:           req.Limit,
			ProcuredBy:      &actor,
			ProcurementCost: req.ProcurementCost,
		})
		if err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"cashtag": cashtag, "payment_method": method})
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityCompanyTag, out.ID, &actor, "tag_created", "", out.Status, metadata)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CompanyTagService) Get(ctx context.Context, id uuid.UUID) (*models.CompanyTag, error) {
	return s.store.Queries().GetCompanyTag(ctx, id)
}

func (s *CompanyTagService) List(ctx context.Context, status string, limit, offset int32) ([]*models.CompanyTag, error) {
	params := listParams(status, limit, offset)
	if params.Status != "" && !domain.IsTagStatus(params.Status) {
		return nil, ErrInvalidStatus
	}
	return s.store.Queries().ListCompanyTags(ctx, params)
}

func (s *CompanyTagService) SetStatus(ctx context.Context, id, actor uuid.UUID, status string) (*models.CompanyTag, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsTagStatus(status) {
		return nil, ErrInvalidTagStatus
	}
	var out *models.CompanyTag
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		tag, err := q.GetCompanyTagForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if tag.Status == status {
			out = tag
			return nil
		}
		out, err = q.UpdateCompanyTagStatus(ctx, id, status)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityCompanyTag, id, &actor, "tag_status_changed", tag.Status, status, nil)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Activity never fails because of the legacy API; its error is reported alongside the local log.
func (s *CompanyTagService) Activity(ctx context.Context, id uuid.UUID) (*TagActivity, error) {
	q := s.store.Queries()
	if _, err := q.GetCompanyTag(ctx, id); err != nil {
		return nil, err
	}
	local, err := q.ListActivityLogs(ctx, domain.EntityCompanyTag, id, tagActivityLimit)
	if err != nil {
		return nil, err
	}
	out := &TagActivity{Local: local}
	if s.legacy == nil || !s.legacy.Enabled() {
		return out, nil
	}

	remote, err := s.legacy.CashtagActivity(ctx, id.String())
	if err != nil {
		zap.L().Warn("legacy cashtag activity unavailable", zap.String("tag_id", id.String()), zap.Error(err))
		var apiErr *legacy.APIError
		if errors.As(err, &apiErr) {
			out.LegacyError = apiErr.Message
		} else {
			out.LegacyError = "legacy api unavailable"
		}
		return out, nil
	}
	out.Legacy = remote
	return out, nil
}
