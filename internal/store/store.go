package store

import (
	"context"
	"errors"
	"time"

	"github.com/NabeelMohideen/StockSync/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
)

// CheckoutWrite is everything a single checkout persists. The
// repository executes it atomically: the whole set commits or nothing
// does, and stock is verified before the first write.
type CheckoutWrite struct {
	Sale       domain.Sale
	Customer   domain.Customer
	Warranties []domain.Warranty
	CreditSale *domain.CreditSale
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	SetStorageQuantity(ctx context.Context, productID string, quantity int) (*domain.Product, error)

	ListShops(ctx context.Context) ([]domain.Shop, error)
	GetShopByID(ctx context.Context, id string) (*domain.Shop, error)
	CreateShop(ctx context.Context, shop domain.Shop) (*domain.Shop, error)
	UpdateShop(ctx context.Context, shop domain.Shop) (*domain.Shop, error)
	DeleteShop(ctx context.Context, id string) error

	ListInventory(ctx context.Context, shopID string) ([]domain.InventoryItem, error)
	GetShopInventory(ctx context.Context, shopID string, productID string) (*domain.ShopInventory, error)
	SetShopQuantity(ctx context.Context, shopID string, productID string, quantity int) (*domain.ShopInventory, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	// CreateCheckout verifies stock for every line, resolves or creates
	// the customer by phone, then persists the sale, its items, the
	// warranties, the credit sale if any, and the inventory decrements
	// as one unit. Returns ErrInsufficientStock without writing when any
	// line exceeds available shop stock.
	CreateCheckout(ctx context.Context, write CheckoutWrite) (*domain.CheckoutResponse, error)

	ListSales(ctx context.Context, shopID string, limit int) ([]domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)

	ListWarranties(ctx context.Context) ([]domain.Warranty, error)
	GetWarrantyByID(ctx context.Context, id string) (*domain.Warranty, error)
	CreateWarranty(ctx context.Context, warranty domain.Warranty) (*domain.Warranty, error)
	UpdateWarranty(ctx context.Context, warranty domain.Warranty) (*domain.Warranty, error)

	// CreateTransfer decrements the product's storage quantity and
	// inserts the pending transfer atomically.
	CreateTransfer(ctx context.Context, transfer domain.StockTransfer) (*domain.StockTransfer, error)
	ListTransfers(ctx context.Context, status string) ([]domain.StockTransfer, error)
	GetTransferByID(ctx context.Context, id string) (*domain.StockTransfer, error)
	// AdvanceTransfer applies a ship/deliver/cancel action together with
	// its stock side effect. Returns ErrInvalidTransition when the
	// action is not allowed from the transfer's current status.
	AdvanceTransfer(ctx context.Context, id string, action string, at time.Time) (*domain.StockTransfer, error)

	ListAccountEntries(ctx context.Context, shopID string) ([]domain.AccountEntry, error)
	CreateAccountEntry(ctx context.Context, entry domain.AccountEntry) (*domain.AccountEntry, error)
	DeleteAccountEntry(ctx context.Context, id string) error
	AccountSummary(ctx context.Context, shopID string) (*domain.AccountSummary, error)

	ListCreditSales(ctx context.Context, openOnly bool) ([]domain.CreditSale, error)
	GetCreditSaleByID(ctx context.Context, id string) (*domain.CreditSale, error)
	// RecordCreditPayment inserts the payment and moves its amount from
	// balance due to amount paid, settling the credit sale when the
	// balance reaches zero.
	RecordCreditPayment(ctx context.Context, payment domain.CreditPayment) (*domain.CreditSale, error)
	ListCreditPayments(ctx context.Context, creditSaleID string) ([]domain.CreditPayment, error)

	SalesSummary(ctx context.Context, from time.Time, to time.Time) (*domain.SalesSummary, error)
	ListLowStock(ctx context.Context) ([]domain.LowStockItem, error)

	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
}
