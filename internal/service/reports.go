package service

import (
	"context"
	"fmt"
	"time"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
)

// SalesReport aggregates sales in [from, to] by shop and payment
// method. Results are cached for a short TTL since the dashboard polls
// this endpoint.
func (s *Service) SalesReport(ctx context.Context, fromStr string, toStr string) (domain.SalesSummary, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return domain.SalesSummary{}, fmt.Errorf("%w: from must be YYYY-MM-DD", store.ErrValidation)
		}
		from = parsed.UTC()
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return domain.SalesSummary{}, fmt.Errorf("%w: to must be YYYY-MM-DD", store.ErrValidation)
		}
		to = parsed.UTC()
	}
	if !to.After(from) {
		return domain.SalesSummary{}, fmt.Errorf("%w: to must be after from", store.ErrValidation)
	}
	// The upper bound is exclusive, so a date-only "to" covers the
	// whole day it names.
	to = to.AddDate(0, 0, 1)

	key := fmt.Sprintf("report:sales:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if cached, found, err := s.reports.Get(ctx, key); err != nil {
		s.log.WithError(err).Warn("report cache read failed")
	} else if found {
		return *cached, nil
	}

	summary, err := s.repo.SalesSummary(ctx, from, to)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary.From = from.Format("2006-01-02")
	summary.To = to.AddDate(0, 0, -1).Format("2006-01-02")

	if err := s.reports.Set(ctx, key, summary, s.reportTTL); err != nil {
		s.log.WithError(err).Warn("report cache write failed")
	}
	return *summary, nil
}

// LowStockReport lists every location whose quantity is at or below its
// minimum stock level, storage pool included.
func (s *Service) LowStockReport(ctx context.Context) ([]domain.LowStockItem, error) {
	return s.repo.ListLowStock(ctx)
}
