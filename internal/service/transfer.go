package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
	"github.com/NabeelMohideen/StockSync/internal/xid"
)

// CreateTransfer opens a storage-to-shop movement. The requested
// quantity is reserved immediately: it leaves the storage pool when the
// transfer is created, not when it is delivered.
func (s *Service) CreateTransfer(ctx context.Context, req domain.TransferCreateRequest) (domain.StockTransfer, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.ToShopID = strings.TrimSpace(req.ToShopID)
	if err := s.validateStruct(req); err != nil {
		return domain.StockTransfer{}, err
	}

	now := time.Now().UTC()
	transferDate := now
	if strings.TrimSpace(req.TransferDate) != "" {
		parsed, err := time.Parse("2006-01-02", req.TransferDate)
		if err != nil {
			return domain.StockTransfer{}, fmt.Errorf("%w: transfer date must be YYYY-MM-DD", store.ErrValidation)
		}
		transferDate = parsed.UTC()
	}

	transfer := domain.StockTransfer{
		ID:           xid.New("transfer"),
		ProductID:    req.ProductID,
		FromLocation: domain.TransferLocationStorage,
		ToShopID:     req.ToShopID,
		Quantity:     req.Quantity,
		TransferDate: transferDate,
		Status:       domain.TransferStatusPending,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.CreateTransfer(ctx, transfer)
	if err != nil {
		return domain.StockTransfer{}, err
	}

	s.audit(ctx, "transfer_create", "transfer", created.ID, fmt.Sprintf("product=%s,shop=%s,quantity=%d", created.ProductID, created.ToShopID, created.Quantity))
	return *created, nil
}

func (s *Service) ListTransfers(ctx context.Context, status string) ([]domain.StockTransfer, error) {
	status = strings.TrimSpace(status)
	switch status {
	case "", domain.TransferStatusPending, domain.TransferStatusInTransit,
		domain.TransferStatusCompleted, domain.TransferStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %s", store.ErrValidation, status)
	}
	return s.repo.ListTransfers(ctx, status)
}

func (s *Service) GetTransfer(ctx context.Context, id string) (domain.StockTransfer, error) {
	transfer, err := s.repo.GetTransferByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.StockTransfer{}, err
	}
	return *transfer, nil
}

// AdvanceTransfer applies ship, deliver, or cancel to a transfer. The
// repository performs the transition and its stock movement atomically;
// an action that does not apply to the current status surfaces as
// ErrInvalidTransition.
func (s *Service) AdvanceTransfer(ctx context.Context, id string, action string) (domain.StockTransfer, error) {
	id = strings.TrimSpace(id)
	action = strings.TrimSpace(action)
	if id == "" {
		return domain.StockTransfer{}, fmt.Errorf("%w: transfer id required", store.ErrValidation)
	}
	switch action {
	case domain.TransferActionShip, domain.TransferActionDeliver, domain.TransferActionCancel:
	default:
		return domain.StockTransfer{}, fmt.Errorf("%w: unknown action %s", store.ErrValidation, action)
	}

	updated, err := s.repo.AdvanceTransfer(ctx, id, action, time.Now().UTC())
	if err != nil {
		return domain.StockTransfer{}, err
	}

	s.audit(ctx, "transfer_"+action, "transfer", updated.ID, fmt.Sprintf("status=%s", updated.Status))
	return *updated, nil
}
