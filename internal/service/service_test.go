package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
)

func TestSalesReportMatchesSeededCheckouts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	first, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-colombo",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 2},
		},
		Customer: domain.CheckoutCustomer{Name: "Report A"},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	second, err := svc.Checkout(ctx, domain.CheckoutRequest{
		ShopID: "shop-kandy",
		Lines: []domain.CheckoutLine{
			{ProductID: "prod-hdmi", Quantity: 1},
		},
		Customer:      domain.CheckoutCustomer{Name: "Report B"},
		PaymentMethod: domain.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	summary, err := svc.SalesReport(ctx, "", "")
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}

	if summary.Sales != 2 {
		t.Fatalf("expected 2 sales in the window, got %d", summary.Sales)
	}
	wantRevenue := first.Sale.TotalAmount.Add(second.Sale.TotalAmount)
	if !summary.TotalRevenue.Equal(wantRevenue) {
		t.Fatalf("expected revenue %s, got %s", wantRevenue, summary.TotalRevenue)
	}

	byShop := map[string]decimal.Decimal{}
	for _, row := range summary.ByShop {
		byShop[row.ShopID] = row.TotalRevenue
	}
	if !byShop["shop-colombo"].Equal(first.Sale.TotalAmount) {
		t.Fatalf("expected shop-colombo revenue %s, got %s", first.Sale.TotalAmount, byShop["shop-colombo"])
	}
	if !byShop["shop-kandy"].Equal(second.Sale.TotalAmount) {
		t.Fatalf("expected shop-kandy revenue %s, got %s", second.Sale.TotalAmount, byShop["shop-kandy"])
	}

	byPayment := map[string]int64{}
	for _, row := range summary.ByPayment {
		byPayment[row.PaymentMethod] = row.Sales
	}
	if byPayment[domain.PaymentMethodCash] != 1 || byPayment[domain.PaymentMethodCard] != 1 {
		t.Fatalf("expected one cash and one card sale, got %v", byPayment)
	}
}

func TestSalesReportValidatesDateRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	if _, err := svc.SalesReport(ctx, "not-a-date", ""); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed from, got %v", err)
	}
	if _, err := svc.SalesReport(ctx, "2026-08-10", "2026-08-01"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for inverted range, got %v", err)
	}
}

func TestLowStockReportFlagsStorageAndShops(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	items, err := svc.LowStockReport(ctx)
	if err != nil {
		t.Fatalf("low stock report: %v", err)
	}

	var sonyStorage, kandyLG bool
	for _, item := range items {
		if item.ProductID == "prod-sony-65" && item.Location == "storage" {
			sonyStorage = true
		}
		if item.ProductID == "prod-lg-50" && item.ShopID == "shop-kandy" {
			kandyLG = true
		}
		if item.Quantity > item.MinStockLevel {
			t.Fatalf("item %s at %s is not low: %d > %d", item.ProductID, item.Location, item.Quantity, item.MinStockLevel)
		}
	}
	// Seeded data: prod-sony-65 has 4 in storage against a minimum of 4,
	// and shop-kandy holds 2 LG units against a minimum of 2.
	if !sonyStorage {
		t.Fatalf("expected prod-sony-65 storage pool to be flagged")
	}
	if !kandyLG {
		t.Fatalf("expected prod-lg-50 at shop-kandy to be flagged")
	}
}

func TestAccountSummaryNetsIncomeAndExpense(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	if _, err := svc.CreateAccountEntry(ctx, domain.AccountEntryCreateRequest{
		ShopID:   "shop-colombo",
		Type:     domain.AccountEntryIncome,
		Category: "daily_sales",
		Amount:   decimal.NewFromInt(250000),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if _, err := svc.CreateAccountEntry(ctx, domain.AccountEntryCreateRequest{
		ShopID:   "shop-colombo",
		Type:     domain.AccountEntryExpense,
		Category: "electricity",
		Amount:   decimal.NewFromInt(40000),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := svc.CreateAccountEntry(ctx, domain.AccountEntryCreateRequest{
		ShopID:   "shop-kandy",
		Type:     domain.AccountEntryIncome,
		Category: "daily_sales",
		Amount:   decimal.NewFromInt(90000),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}

	colombo, err := svc.AccountSummary(ctx, "shop-colombo")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !colombo.TotalIncome.Equal(decimal.NewFromInt(250000)) {
		t.Fatalf("expected income 250000, got %s", colombo.TotalIncome)
	}
	if !colombo.TotalExpense.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("expected expense 40000, got %s", colombo.TotalExpense)
	}
	if !colombo.Net.Equal(decimal.NewFromInt(210000)) {
		t.Fatalf("expected net 210000, got %s", colombo.Net)
	}

	all, err := svc.AccountSummary(ctx, "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !all.TotalIncome.Equal(decimal.NewFromInt(340000)) {
		t.Fatalf("expected combined income 340000, got %s", all.TotalIncome)
	}
}

func TestCreateAccountEntryRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	_, err := svc.CreateAccountEntry(ctx, domain.AccountEntryCreateRequest{
		ShopID:   "shop-colombo",
		Type:     domain.AccountEntryExpense,
		Category: "misc",
		Amount:   decimal.Zero,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestWarrantyUpdateRecomputesExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	created, err := svc.CreateWarranty(ctx, domain.WarrantyCreateRequest{
		ProductID:    "prod-samsung-43",
		CustomerName: "Warranty Holder",
		PeriodMonths: 12,
		PurchaseDate: "2026-01-15",
	})
	if err != nil {
		t.Fatalf("create warranty: %v", err)
	}
	if got := created.ExpiryDate.Format("2006-01-02"); got != "2027-01-15" {
		t.Fatalf("expected expiry 2027-01-15, got %s", got)
	}

	months := 24
	updated, err := svc.UpdateWarranty(ctx, created.ID, domain.WarrantyUpdateRequest{PeriodMonths: &months})
	if err != nil {
		t.Fatalf("update warranty: %v", err)
	}
	if got := updated.ExpiryDate.Format("2006-01-02"); got != "2028-01-15" {
		t.Fatalf("extended expiry must follow the original purchase date, got %s", got)
	}

	claimed := true
	updated, err = svc.UpdateWarranty(ctx, created.ID, domain.WarrantyUpdateRequest{Claimed: &claimed})
	if err != nil {
		t.Fatalf("claim warranty: %v", err)
	}
	if updated.Status != domain.WarrantyStatusClaimed {
		t.Fatalf("expected claimed status, got %s", updated.Status)
	}
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleSuperAdmin, "")

	created, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username:       "KandySales",
		Password:       "s3cret-pass",
		Role:           domain.RoleSalesPerson,
		AssignedShopID: "shop-kandy",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Username != "kandysales" {
		t.Fatalf("usernames are lowercased, got %s", created.Username)
	}
	if created.Password != "" {
		t.Fatalf("password hash must not leak from the service")
	}

	account, err := svc.Authenticate(ctx, "kandysales", "s3cret-pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if account.AssignedShopID != "shop-kandy" {
		t.Fatalf("expected assigned shop, got %q", account.AssignedShopID)
	}

	if _, err := svc.Authenticate(ctx, "kandysales", "wrong"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a bad password, got %v", err)
	}

	// Deactivated accounts cannot log in.
	inactive := false
	if _, err := svc.UpdateUser(ctx, "kandysales", domain.UserUpdateRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "kandysales", "s3cret-pass"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an inactive account, got %v", err)
	}
}

func TestCreateUserSalesPersonNeedsShop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleSuperAdmin, "")

	_, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "floating",
		Password: "s3cret-pass",
		Role:     domain.RoleSalesPerson,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	_, err = svc.CreateUser(ctx, domain.UserCreateRequest{
		Username:       "ghostshop",
		Password:       "s3cret-pass",
		Role:           domain.RoleSalesPerson,
		AssignedShopID: "shop-nowhere",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown shop, got %v", err)
	}
}

func TestDeleteProductWithStockConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asRole(domain.RoleAdministrator, "")

	// prod-hdmi has stock in storage and in shops.
	if err := svc.DeleteProduct(ctx, "prod-hdmi"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict deleting a stocked product, got %v", err)
	}
}

func TestInventoryListScopedForSalesPerson(t *testing.T) {
	svc, _ := newTestService(t)

	salesCtx := asRole(domain.RoleSalesPerson, "shop-colombo")
	items, err := svc.ListInventory(salesCtx, "")
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) == 0 {
		t.Fatalf("expected seeded inventory rows")
	}
	for _, item := range items {
		if item.ShopID != "shop-colombo" {
			t.Fatalf("sales person must only see the assigned shop, got row for %s", item.ShopID)
		}
	}

	if _, err := svc.ListInventory(salesCtx, "shop-kandy"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a foreign shop filter, got %v", err)
	}
}

func TestWarrantyExpiryUsesCalendarMonths(t *testing.T) {
	purchase := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	expiry := domain.WarrantyExpiry(purchase, 1)
	// AddDate normalizes 2026-02-31 to 2026-03-03.
	if got := expiry.Format("2006-01-02"); got != "2026-03-03" {
		t.Fatalf("expected normalized expiry 2026-03-03, got %s", got)
	}
}
