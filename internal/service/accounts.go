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

func (s *Service) ListAccountEntries(ctx context.Context, shopID string) ([]domain.AccountEntry, error) {
	return s.repo.ListAccountEntries(ctx, strings.TrimSpace(shopID))
}

func (s *Service) CreateAccountEntry(ctx context.Context, req domain.AccountEntryCreateRequest) (domain.AccountEntry, error) {
	req.ShopID = strings.TrimSpace(req.ShopID)
	req.Category = strings.TrimSpace(req.Category)
	if err := s.validateStruct(req); err != nil {
		return domain.AccountEntry{}, err
	}
	if !req.Amount.IsPositive() {
		return domain.AccountEntry{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	now := time.Now().UTC()
	entryDate := now
	if strings.TrimSpace(req.EntryDate) != "" {
		parsed, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			return domain.AccountEntry{}, fmt.Errorf("%w: entry date must be YYYY-MM-DD", store.ErrValidation)
		}
		entryDate = parsed.UTC()
	}

	entry := domain.AccountEntry{
		ID:        xid.New("acct"),
		ShopID:    req.ShopID,
		Type:      req.Type,
		Category:  req.Category,
		Amount:    req.Amount,
		EntryDate: entryDate,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
	}

	created, err := s.repo.CreateAccountEntry(ctx, entry)
	if err != nil {
		return domain.AccountEntry{}, err
	}

	s.audit(ctx, "account_entry_create", "account_entry", created.ID, fmt.Sprintf("shop=%s,type=%s,amount=%s", created.ShopID, created.Type, created.Amount))
	return *created, nil
}

func (s *Service) DeleteAccountEntry(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: entry id required", store.ErrValidation)
	}
	if err := s.repo.DeleteAccountEntry(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "account_entry_delete", "account_entry", id, "")
	return nil
}

func (s *Service) AccountSummary(ctx context.Context, shopID string) (domain.AccountSummary, error) {
	summary, err := s.repo.AccountSummary(ctx, strings.TrimSpace(shopID))
	if err != nil {
		return domain.AccountSummary{}, err
	}
	return *summary, nil
}

func (s *Service) ListCreditSales(ctx context.Context, openOnly bool) ([]domain.CreditSale, error) {
	return s.repo.ListCreditSales(ctx, openOnly)
}

func (s *Service) GetCreditSale(ctx context.Context, id string) (domain.CreditSale, error) {
	creditSale, err := s.repo.GetCreditSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.CreditSale{}, err
	}
	return *creditSale, nil
}

// RecordCreditPayment applies a payment against an open credit sale.
// The repository clamps the paid amount at the sale total and settles
// the balance when it reaches zero.
func (s *Service) RecordCreditPayment(ctx context.Context, creditSaleID string, req domain.CreditPaymentRequest) (domain.CreditSale, error) {
	creditSaleID = strings.TrimSpace(creditSaleID)
	if creditSaleID == "" {
		return domain.CreditSale{}, fmt.Errorf("%w: credit sale id required", store.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return domain.CreditSale{}, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = domain.PaymentMethodCash
	}

	now := time.Now().UTC()
	payment := domain.CreditPayment{
		ID:           xid.New("pay"),
		CreditSaleID: creditSaleID,
		Amount:       req.Amount,
		PaymentDate:  now,
		Method:       method,
		CreatedAt:    now,
	}

	updated, err := s.repo.RecordCreditPayment(ctx, payment)
	if err != nil {
		return domain.CreditSale{}, err
	}

	s.audit(ctx, "credit_payment", "credit_sale", updated.ID, fmt.Sprintf("amount=%s,balance=%s", req.Amount, updated.BalanceDue))
	return *updated, nil
}

func (s *Service) ListCreditPayments(ctx context.Context, creditSaleID string) ([]domain.CreditPayment, error) {
	creditSaleID = strings.TrimSpace(creditSaleID)
	if creditSaleID == "" {
		return nil, fmt.Errorf("%w: credit sale id required", store.ErrValidation)
	}
	return s.repo.ListCreditPayments(ctx, creditSaleID)
}
