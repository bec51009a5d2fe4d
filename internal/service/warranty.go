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

func (s *Service) ListWarranties(ctx context.Context) ([]domain.Warranty, error) {
	return s.repo.ListWarranties(ctx)
}

func (s *Service) GetWarranty(ctx context.Context, id string) (domain.Warranty, error) {
	warranty, err := s.repo.GetWarrantyByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Warranty{}, err
	}
	return *warranty, nil
}

// CreateWarranty registers coverage manually, for sales made before the
// system existed or replacements issued outside a checkout.
func (s *Service) CreateWarranty(ctx context.Context, req domain.WarrantyCreateRequest) (domain.Warranty, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if err := s.validateStruct(req); err != nil {
		return domain.Warranty{}, err
	}

	now := time.Now().UTC()
	purchaseDate := now
	if strings.TrimSpace(req.PurchaseDate) != "" {
		parsed, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			return domain.Warranty{}, fmt.Errorf("%w: purchase date must be YYYY-MM-DD", store.ErrValidation)
		}
		purchaseDate = parsed.UTC()
	}

	warranty := domain.Warranty{
		ID:            xid.New("war"),
		SaleID:        strings.TrimSpace(req.SaleID),
		ProductID:     req.ProductID,
		CustomerName:  req.CustomerName,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		PeriodMonths:  req.PeriodMonths,
		PurchaseDate:  purchaseDate,
		ExpiryDate:    domain.WarrantyExpiry(purchaseDate, req.PeriodMonths),
		SerialNumber:  strings.TrimSpace(req.SerialNumber),
		CreatedAt:     now,
	}

	created, err := s.repo.CreateWarranty(ctx, warranty)
	if err != nil {
		return domain.Warranty{}, err
	}

	s.audit(ctx, "warranty_create", "warranty", created.ID, fmt.Sprintf("product=%s,months=%d", created.ProductID, created.PeriodMonths))
	return *created, nil
}

// UpdateWarranty adjusts coverage or marks it claimed. A period change
// recomputes the expiry from the original purchase date.
func (s *Service) UpdateWarranty(ctx context.Context, id string, req domain.WarrantyUpdateRequest) (domain.Warranty, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Warranty{}, fmt.Errorf("%w: warranty id required", store.ErrValidation)
	}

	existing, err := s.repo.GetWarrantyByID(ctx, id)
	if err != nil {
		return domain.Warranty{}, err
	}

	updated := *existing
	if req.PeriodMonths != nil {
		if *req.PeriodMonths < 1 {
			return domain.Warranty{}, fmt.Errorf("%w: period must be at least one month", store.ErrValidation)
		}
		updated.PeriodMonths = *req.PeriodMonths
		updated.ExpiryDate = domain.WarrantyExpiry(updated.PurchaseDate, updated.PeriodMonths)
	}
	if req.SerialNumber != nil {
		updated.SerialNumber = strings.TrimSpace(*req.SerialNumber)
	}
	if req.Claimed != nil {
		updated.Claimed = *req.Claimed
	}

	saved, err := s.repo.UpdateWarranty(ctx, updated)
	if err != nil {
		return domain.Warranty{}, err
	}

	s.audit(ctx, "warranty_update", "warranty", saved.ID, fmt.Sprintf("claimed=%t", saved.Claimed))
	return *saved, nil
}
