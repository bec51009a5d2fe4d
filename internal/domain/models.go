package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Brand            string          `json:"brand"`
	SKU              string          `json:"sku"`
	Category         string          `json:"category"`
	Size             string          `json:"size,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Cost             decimal.Decimal `json:"cost"`
	HasSerialNumbers bool            `json:"has_serial_numbers"`
	WarrantyMonths   int             `json:"warranty_months"`
	StorageQuantity  int             `json:"storage_quantity"`
	MinStockLevel    int             `json:"min_stock_level"`
	ImageURL         string          `json:"image_url,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name             string          `json:"name" validate:"required"`
	Brand            string          `json:"brand" validate:"required"`
	SKU              string          `json:"sku" validate:"required"`
	Category         string          `json:"category"`
	Size             string          `json:"size"`
	Price            decimal.Decimal `json:"price"`
	Cost             decimal.Decimal `json:"cost"`
	HasSerialNumbers bool            `json:"has_serial_numbers"`
	WarrantyMonths   int             `json:"warranty_months" validate:"min=0"`
	StorageQuantity  int             `json:"storage_quantity" validate:"min=0"`
	MinStockLevel    int             `json:"min_stock_level" validate:"min=0"`
	ImageURL         string          `json:"image_url"`
}

type ProductUpdateRequest struct {
	Name             *string          `json:"name,omitempty"`
	Brand            *string          `json:"brand,omitempty"`
	Category         *string          `json:"category,omitempty"`
	Size             *string          `json:"size,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Cost             *decimal.Decimal `json:"cost,omitempty"`
	HasSerialNumbers *bool            `json:"has_serial_numbers,omitempty"`
	WarrantyMonths   *int             `json:"warranty_months,omitempty"`
	MinStockLevel    *int             `json:"min_stock_level,omitempty"`
	ImageURL         *string          `json:"image_url,omitempty"`
}

type Shop struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type ShopCreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
}

type ShopUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ShopInventory is the per-(shop, product) stock row, distinct from the
// central storage pool tracked on the product itself. Quantity never
// goes below zero.
type ShopInventory struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	MinStockLevel int       `json:"min_stock_level"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InventoryItem is a shop inventory row joined with its product, the
// shape the POS screens list.
type InventoryItem struct {
	ShopInventory
	ProductName  string          `json:"product_name"`
	ProductBrand string          `json:"product_brand"`
	ProductSKU   string          `json:"product_sku"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

const (
	PaymentMethodCash         = "cash"
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCredit       = "credit"
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

type Sale struct {
	ID            string          `json:"id"`
	ShopID        string          `json:"shop_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	SaleDate      time.Time       `json:"sale_date"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `json:"items,omitempty"`
}

type SaleItem struct {
	ID           string          `json:"id"`
	SaleID       string          `json:"sale_id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	SerialNumber string          `json:"serial_number,omitempty"`
}

type CheckoutLine struct {
	ProductID    string          `json:"product_id" validate:"required"`
	Quantity     int             `json:"quantity" validate:"min=1"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	SerialNumber string          `json:"serial_number"`
}

type CheckoutCustomer struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type CheckoutRequest struct {
	ShopID        string           `json:"shop_id" validate:"required"`
	Lines         []CheckoutLine   `json:"lines" validate:"min=1,dive"`
	Customer      CheckoutCustomer `json:"customer"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes"`
}

type CheckoutResponse struct {
	Sale       Sale       `json:"sale"`
	Warranties []Warranty `json:"warranties"`
	CreditSale *CreditSale `json:"credit_sale,omitempty"`
}

const (
	WarrantyStatusActive  = "active"
	WarrantyStatusExpired = "expired"
	WarrantyStatusClaimed = "claimed"
)

type Warranty struct {
	ID            string    `json:"id"`
	SaleID        string    `json:"sale_id,omitempty"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	PeriodMonths  int       `json:"warranty_period_months"`
	PurchaseDate  time.Time `json:"purchase_date"`
	ExpiryDate    time.Time `json:"warranty_expiry_date"`
	SerialNumber  string    `json:"serial_number,omitempty"`
	Claimed       bool      `json:"claimed"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// WarrantyExpiry computes the expiry date with calendar-month
// arithmetic, which is how coverage periods are sold.
func WarrantyExpiry(purchaseDate time.Time, periodMonths int) time.Time {
	return purchaseDate.AddDate(0, periodMonths, 0)
}

// WarrantyStatusAt derives the status of a warranty. Claimed is a
// terminal override; otherwise the status follows from the expiry date.
func WarrantyStatusAt(expiryDate time.Time, claimed bool, now time.Time) string {
	if claimed {
		return WarrantyStatusClaimed
	}
	if now.After(expiryDate) {
		return WarrantyStatusExpired
	}
	return WarrantyStatusActive
}

// DeriveStatus refreshes the computed status field before a warranty is
// returned to a caller.
func (w *Warranty) DeriveStatus(now time.Time) {
	w.Status = WarrantyStatusAt(w.ExpiryDate, w.Claimed, now)
}

type WarrantyCreateRequest struct {
	SaleID        string `json:"sale_id"`
	ProductID     string `json:"product_id" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerPhone string `json:"customer_phone"`
	PeriodMonths  int    `json:"warranty_period_months" validate:"min=1"`
	PurchaseDate  string `json:"purchase_date"`
	SerialNumber  string `json:"serial_number"`
}

type WarrantyUpdateRequest struct {
	PeriodMonths *int    `json:"warranty_period_months,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Claimed      *bool   `json:"claimed,omitempty"`
}

const (
	TransferStatusPending   = "pending"
	TransferStatusInTransit = "in_transit"
	TransferStatusCompleted = "completed"
	TransferStatusCancelled = "cancelled"
)

const (
	TransferActionShip    = "ship"
	TransferActionDeliver = "deliver"
	TransferActionCancel  = "cancel"
)

// TransferLocationStorage is the fixed source of every transfer: the
// central storage pool tracked on the product itself.
const TransferLocationStorage = "storage"

type StockTransfer struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	FromLocation string    `json:"from_location"`
	ToShopID     string    `json:"to_shop_id"`
	Quantity     int       `json:"quantity"`
	TransferDate time.Time `json:"transfer_date"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TransferTransition is the one place the transfer state machine is
// encoded. It returns the status that results from applying action to
// the current status, or ok=false when the transition is not allowed.
// completed and cancelled are terminal.
func TransferTransition(current string, action string) (next string, ok bool) {
	switch action {
	case TransferActionShip:
		if current == TransferStatusPending {
			return TransferStatusInTransit, true
		}
	case TransferActionDeliver:
		if current == TransferStatusInTransit {
			return TransferStatusCompleted, true
		}
	case TransferActionCancel:
		if current == TransferStatusPending || current == TransferStatusInTransit {
			return TransferStatusCancelled, true
		}
	}
	return "", false
}

type TransferCreateRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	ToShopID     string `json:"to_shop_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"min=1"`
	TransferDate string `json:"transfer_date"`
	Notes        string `json:"notes"`
}

const (
	AccountEntryIncome  = "income"
	AccountEntryExpense = "expense"
)

type AccountEntry struct {
	ID        string          `json:"id"`
	ShopID    string          `json:"shop_id"`
	Type      string          `json:"transaction_type"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	EntryDate time.Time       `json:"entry_date"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type AccountEntryCreateRequest struct {
	ShopID    string          `json:"shop_id" validate:"required"`
	Type      string          `json:"transaction_type" validate:"oneof=income expense"`
	Category  string          `json:"category" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	EntryDate string          `json:"entry_date"`
	Notes     string          `json:"notes"`
}

type AccountSummary struct {
	ShopID       string          `json:"shop_id,omitempty"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
}

// CreditSale tracks the unpaid balance of a sale taken on credit. It is
// settled once recorded payments reach the sale total.
type CreditSale struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"sale_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	Settled       bool            `json:"settled"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type CreditPayment struct {
	ID           string          `json:"id"`
	CreditSaleID string          `json:"credit_sale_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"payment_date"`
	Method       string          `json:"method"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CreditPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type SalesSummaryShop struct {
	ShopID       string          `json:"shop_id"`
	Sales        int64           `json:"sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type SalesSummaryPayment struct {
	PaymentMethod string          `json:"payment_method"`
	Sales         int64           `json:"sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type SalesSummary struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Sales        int64                 `json:"sales"`
	TotalRevenue decimal.Decimal       `json:"total_revenue"`
	ByShop       []SalesSummaryShop    `json:"by_shop"`
	ByPayment    []SalesSummaryPayment `json:"by_payment"`
}

type LowStockItem struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Location      string `json:"location"`
	ShopID        string `json:"shop_id,omitempty"`
	Quantity      int    `json:"quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

const (
	RoleSuperAdmin    = "super_admin"
	RoleAdministrator = "administrator"
	RoleSalesPerson   = "sales_person"
	RoleReportViewer  = "report_viewer"
)

func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdministrator, RoleSalesPerson, RoleReportViewer:
		return true
	}
	return false
}

// UserAccount is the persistence model for auth credentials. Password
// holds a bcrypt hash, never plaintext.
type UserAccount struct {
	Username       string    `json:"username"`
	Password       string    `json:"-"`
	Role           string    `json:"role"`
	AssignedShopID string    `json:"assigned_shop_id,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username       string `json:"username" validate:"required,min=4"`
	Password       string `json:"password" validate:"required,min=6"`
	Role           string `json:"role" validate:"oneof=super_admin administrator sales_person report_viewer"`
	AssignedShopID string `json:"assigned_shop_id"`
}

type UserUpdateRequest struct {
	Role           *string `json:"role,omitempty"`
	AssignedShopID *string `json:"assigned_shop_id,omitempty"`
	Active         *bool   `json:"active,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken    string `json:"access_token"`
	Role           string `json:"role"`
	AssignedShopID string `json:"assigned_shop_id,omitempty"`
	ExpiresAt      string `json:"expires_at"`
}

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	Username string
	Role     string
	ShopID   string
}
