package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
	"github.com/NabeelMohideen/StockSync/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := memory.NewSeeded()
	return New(repo, nil, logger, time.Minute), repo
}

func asRole(role string, shopID string) context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "test-" + role,
		Role:     role,
		ShopID:   shopID,
	})
}

func TestCheckoutTotalsAndWarranties(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleSalesPerson, "shop-colombo")

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-samsung-43", Quantity: 1, SerialNumber: "SN-A1"},
			{ProductID: "prod-hdmi", Quantity: 3},
		},
		Customer:      domain.CheckoutCustomer{Name: "Nimal Perera", Phone: "0771234567"},
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// 189900 + 3*3900 from the seeded catalogue prices.
	want := decimal.NewFromInt(189900 + 3*3900)
	if !resp.Sale.TotalAmount.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, resp.Sale.TotalAmount)
	}

	lineSum := decimal.Zero
	for _, item := range resp.Sale.Items {
		lineSum = lineSum.Add(item.LineTotal)
	}
	if !lineSum.Equal(resp.Sale.TotalAmount) {
		t.Fatalf("line totals %s do not add up to sale total %s", lineSum, resp.Sale.TotalAmount)
	}

	if len(resp.Warranties) != len(resp.Sale.Items) {
		t.Fatalf("expected one warranty per line, got %d for %d lines", len(resp.Warranties), len(resp.Sale.Items))
	}
	for _, warranty := range resp.Warranties {
		wantExpiry := warranty.PurchaseDate.AddDate(0, warranty.PeriodMonths, 0)
		if !warranty.ExpiryDate.Equal(wantExpiry) {
			t.Fatalf("warranty %s expiry %s, want %s", warranty.ID, warranty.ExpiryDate, wantExpiry)
		}
		if warranty.Status != domain.WarrantyStatusActive {
			t.Fatalf("fresh warranty must be active, got %s", warranty.Status)
		}
	}
}

func TestCheckoutDecrementsShopInventory(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	before, err := repo.GetShopInventory(ctx, "shop-colombo", "prod-hdmi")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}

	_, err = svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 5},
		},
		Customer: domain.CheckoutCustomer{Name: "Walk In"},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	after, err := repo.GetShopInventory(ctx, "shop-colombo", "prod-hdmi")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if after.Quantity != before.Quantity-5 {
		t.Fatalf("expected quantity %d, got %d", before.Quantity-5, after.Quantity)
	}
}

func TestCheckoutInsufficientStockLeavesInventoryUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	before, err := repo.GetShopInventory(ctx, "shop-colombo", "prod-samsung-55")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}

	// Two lines: the first could be satisfied, the second cannot. Nothing
	// may be written.
	_, err = svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 1},
			{ProductID: "prod-samsung-55", Quantity: before.Quantity + 1, SerialNumber: "SN-X"},
		},
		Customer: domain.CheckoutCustomer{Name: "Bulk Buyer", Phone: "0770000000"},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	hdmi, err := repo.GetShopInventory(ctx, "shop-colombo", "prod-hdmi")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if hdmi.Quantity != 40 {
		t.Fatalf("failed checkout must not decrement stock, hdmi quantity = %d", hdmi.Quantity)
	}

	sales, err := svc.ListSales(ctx, "shop-colombo", 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("failed checkout must not record a sale, got %d", len(sales))
	}
}

func TestCheckoutReusesCustomerByPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	first, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-bracket", Quantity: 1},
		},
		Customer: domain.CheckoutCustomer{Name: "Kumari Silva", Phone: "0712223344"},
	})
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if first.Sale.CustomerID == "" {
		t.Fatalf("expected a customer to be attached to the sale")
	}

	second, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 1},
		},
		Customer: domain.CheckoutCustomer{Name: "Kumari Silva", Phone: "0712223344"},
	})
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}

	if second.Sale.CustomerID != first.Sale.CustomerID {
		t.Fatalf("expected the same customer id for the same phone, got %s and %s", first.Sale.CustomerID, second.Sale.CustomerID)
	}
}

func TestCheckoutRequiresSerialForSerializedProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-samsung-43", Quantity: 1},
		},
		Customer: domain.CheckoutCustomer{Name: "No Serial", Phone: "0770001111"},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing serial, got %v", err)
	}
}

func TestCheckoutSalesPersonScopedToAssignedShop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleSalesPerson, "shop-colombo")

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-kandy",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 1},
		},
		Customer: domain.CheckoutCustomer{Name: "Walk In"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign shop, got %v", err)
	}
}

func TestCheckoutOnCreditOpensCreditSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-bracket", Quantity: 2},
		},
		Customer:      domain.CheckoutCustomer{Name: "Credit Customer", Phone: "0719998877"},
		PaymentMethod: domain.PaymentMethodCredit,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if resp.CreditSale == nil {
		t.Fatalf("expected a credit sale for a credit checkout")
	}
	if !resp.CreditSale.BalanceDue.Equal(resp.Sale.TotalAmount) {
		t.Fatalf("expected opening balance %s, got %s", resp.Sale.TotalAmount, resp.CreditSale.BalanceDue)
	}
	if resp.CreditSale.Settled {
		t.Fatalf("fresh credit sale must not be settled")
	}
	if resp.CreditSale.CustomerID == "" {
		t.Fatalf("expected the credit sale to reference the customer")
	}
}

func TestCreditPaymentsSettleTheBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-bracket", Quantity: 2},
		},
		Customer:      domain.CheckoutCustomer{Name: "Installments", Phone: "0718887766"},
		PaymentMethod: domain.PaymentMethodCredit,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	creditID := resp.CreditSale.ID
	total := resp.CreditSale.TotalAmount

	half := total.Div(decimal.NewFromInt(2))
	partial, err := svc.RecordCreditPayment(ctx, creditID, domain.CreditPaymentRequest{Amount: half})
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if partial.Settled {
		t.Fatalf("half-paid credit sale must not be settled")
	}
	if !partial.BalanceDue.Equal(total.Sub(half)) {
		t.Fatalf("expected balance %s, got %s", total.Sub(half), partial.BalanceDue)
	}

	settled, err := svc.RecordCreditPayment(ctx, creditID, domain.CreditPaymentRequest{Amount: partial.BalanceDue})
	if err != nil {
		t.Fatalf("settling payment: %v", err)
	}
	if !settled.Settled {
		t.Fatalf("expected credit sale to settle once payments reach the total")
	}
	if !settled.BalanceDue.IsZero() {
		t.Fatalf("expected zero balance, got %s", settled.BalanceDue)
	}

	// A settled credit sale rejects further payments.
	_, err = svc.RecordCreditPayment(ctx, creditID, domain.CreditPaymentRequest{Amount: decimal.NewFromInt(100)})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on settled credit sale, got %v", err)
	}

	payments, err := svc.ListCreditPayments(ctx, creditID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 recorded payments, got %d", len(payments))
	}
}

func TestGetSaleScopedForSalesPerson(t *testing.T) {
	svc, _ := newTestService(t)

	adminCtx := asRole(domain.RoleSuperAdmin, "")
	resp, err := svc.Checkout(adminCtx, domain.CheckoutRequest{
		ShopID: "shop-kandy",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 1},
		},
		Customer: domain.CheckoutCustomer{Name: "Kandy Walk In"},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	salesCtx := asRole(domain.RoleSalesPerson, "shop-colombo")
	if _, err := svc.GetSale(salesCtx, resp.Sale.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a foreign shop's sale, got %v", err)
	}
	if _, err := svc.GetSale(adminCtx, resp.Sale.ID); err != nil {
		t.Fatalf("super admin must see any sale: %v", err)
	}
}
