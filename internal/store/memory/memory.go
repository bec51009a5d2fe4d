package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
	"github.com/NabeelMohideen/StockSync/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	shops           map[string]domain.Shop
	shopInventory   map[string]map[string]domain.ShopInventory
	customers       map[string]domain.Customer
	customerByPhone map[string]string
	sales           map[string]*domain.Sale
	warranties      map[string]domain.Warranty
	transfers       map[string]domain.StockTransfer
	accountEntries  map[string]domain.AccountEntry
	creditSales     map[string]domain.CreditSale
	creditPayments  map[string][]domain.CreditPayment
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		shops:           make(map[string]domain.Shop),
		shopInventory:   make(map[string]map[string]domain.ShopInventory),
		customers:       make(map[string]domain.Customer),
		customerByPhone: make(map[string]string),
		sales:           make(map[string]*domain.Sale),
		warranties:      make(map[string]domain.Warranty),
		transfers:       make(map[string]domain.StockTransfer),
		accountEntries:  make(map[string]domain.AccountEntry),
		creditSales:     make(map[string]domain.CreditSale),
		creditPayments:  make(map[string][]domain.CreditPayment),
		usersByUsername: seedUsers(),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_*_PASSWORD environment variables; hardcoded
// dev defaults are used with a warning when unset. Production deploys
// use PostgreSQL (DATABASE_URL set), where accounts are managed through
// the users API.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	salesPwd := envOr("SEED_SALES_PASSWORD", "sales123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SALES_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		shopID   string
	}{
		{"admin", adminPwd, domain.RoleSuperAdmin, ""},
		{"manager", adminPwd, domain.RoleAdministrator, ""},
		{"sales", salesPwd, domain.RoleSalesPerson, "shop-colombo"},
		{"viewer", salesPwd, domain.RoleReportViewer, ""},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:       u.username,
			Password:       string(hash),
			Role:           u.role,
			AssignedShopID: u.shopID,
			Active:         true,
			CreatedAt:      now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with a small TV-retail dataset:
// two shops, a product catalogue, and shop inventory rows.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	shops := []domain.Shop{
		{ID: "shop-colombo", Name: "Colombo Showroom", Location: "Colombo 03", Phone: "0112500100", IsActive: true, CreatedAt: now},
		{ID: "shop-kandy", Name: "Kandy Branch", Location: "Kandy City Centre", Phone: "0812200455", IsActive: true, CreatedAt: now},
	}
	for _, shop := range shops {
		s.shops[shop.ID] = shop
		s.shopInventory[shop.ID] = make(map[string]domain.ShopInventory)
	}

	products := []domain.Product{
		{ID: "prod-samsung-43", Name: `Samsung Crystal UHD 43"`, Brand: "Samsung", SKU: "TV-SAM-43CU7100", Category: "television", Size: `43"`, Price: decimal.NewFromInt(189900), Cost: decimal.NewFromInt(152000), HasSerialNumbers: true, WarrantyMonths: 24, StorageQuantity: 18, MinStockLevel: 5},
		{ID: "prod-samsung-55", Name: `Samsung QLED 55"`, Brand: "Samsung", SKU: "TV-SAM-55Q60D", Category: "television", Size: `55"`, Price: decimal.NewFromInt(379900), Cost: decimal.NewFromInt(305000), HasSerialNumbers: true, WarrantyMonths: 36, StorageQuantity: 10, MinStockLevel: 3},
		{ID: "prod-lg-50", Name: `LG UT80 50"`, Brand: "LG", SKU: "TV-LG-50UT8050", Category: "television", Size: `50"`, Price: decimal.NewFromInt(249900), Cost: decimal.NewFromInt(198000), HasSerialNumbers: true, WarrantyMonths: 24, StorageQuantity: 14, MinStockLevel: 4},
		{ID: "prod-sony-65", Name: `Sony Bravia 65"`, Brand: "Sony", SKU: "TV-SONY-65X75WL", Category: "television", Size: `65"`, Price: decimal.NewFromInt(549900), Cost: decimal.NewFromInt(452000), HasSerialNumbers: true, WarrantyMonths: 36, StorageQuantity: 4, MinStockLevel: 4},
		{ID: "prod-bracket", Name: "Wall Mount Bracket", Brand: "ProFit", SKU: "ACC-BRACKET-STD", Category: "accessory", Price: decimal.NewFromInt(7500), Cost: decimal.NewFromInt(4200), WarrantyMonths: 6, StorageQuantity: 60, MinStockLevel: 15},
		{ID: "prod-hdmi", Name: "HDMI 2.1 Cable 2m", Brand: "ProFit", SKU: "ACC-HDMI-2M", Category: "accessory", Price: decimal.NewFromInt(3900), Cost: decimal.NewFromInt(1800), WarrantyMonths: 12, StorageQuantity: 120, MinStockLevel: 30},
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}

	seedStock := []struct {
		shopID    string
		productID string
		qty       int
		minStock  int
	}{
		{"shop-colombo", "prod-samsung-43", 6, 2},
		{"shop-colombo", "prod-samsung-55", 4, 2},
		{"shop-colombo", "prod-lg-50", 5, 2},
		{"shop-colombo", "prod-bracket", 20, 5},
		{"shop-colombo", "prod-hdmi", 40, 10},
		{"shop-kandy", "prod-samsung-43", 3, 2},
		{"shop-kandy", "prod-lg-50", 2, 2},
		{"shop-kandy", "prod-hdmi", 15, 10},
	}
	for _, row := range seedStock {
		s.shopInventory[row.shopID][row.productID] = domain.ShopInventory{
			ID:            xid.New("inv"),
			ShopID:        row.shopID,
			ProductID:     row.productID,
			Quantity:      row.qty,
			MinStockLevel: row.minStock,
			UpdatedAt:     now,
		}
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Brand == b.Brand {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Brand, b.Brand)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrConflict
		}
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	for _, rows := range s.shopInventory {
		if row, ok := rows[id]; ok && row.Quantity > 0 {
			return store.ErrConflict
		}
	}

	delete(s.products, id)
	for _, rows := range s.shopInventory {
		delete(rows, id)
	}
	return nil
}

func (s *Store) SetStorageQuantity(_ context.Context, productID string, quantity int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}

	product.StorageQuantity = quantity
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListShops(_ context.Context) ([]domain.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shops := make([]domain.Shop, 0, len(s.shops))
	for _, shop := range s.shops {
		shops = append(shops, shop)
	}
	slices.SortFunc(shops, func(a, b domain.Shop) int {
		return cmpString(a.Name, b.Name)
	})
	return shops, nil
}

func (s *Store) GetShopByID(_ context.Context, id string) (*domain.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shop, exists := s.shops[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyShop := shop
	return &copyShop, nil
}

func (s *Store) CreateShop(_ context.Context, shop domain.Shop) (*domain.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shops[shop.ID] = shop
	if _, ok := s.shopInventory[shop.ID]; !ok {
		s.shopInventory[shop.ID] = make(map[string]domain.ShopInventory)
	}
	created := shop
	return &created, nil
}

func (s *Store) UpdateShop(_ context.Context, shop domain.Shop) (*domain.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shops[shop.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.shops[shop.ID] = shop
	updated := shop
	return &updated, nil
}

func (s *Store) DeleteShop(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shops[id]; !exists {
		return store.ErrNotFound
	}
	for _, row := range s.shopInventory[id] {
		if row.Quantity > 0 {
			return store.ErrConflict
		}
	}

	delete(s.shops, id)
	delete(s.shopInventory, id)
	return nil
}

func (s *Store) ListInventory(_ context.Context, shopID string) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0)
	for sid, rows := range s.shopInventory {
		if shopID != "" && sid != shopID {
			continue
		}
		for _, row := range rows {
			product, ok := s.products[row.ProductID]
			if !ok {
				continue
			}
			items = append(items, domain.InventoryItem{
				ShopInventory: row,
				ProductName:   product.Name,
				ProductBrand:  product.Brand,
				ProductSKU:    product.SKU,
				UnitPrice:     product.Price,
			})
		}
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		if a.ShopID == b.ShopID {
			return cmpString(a.ProductName, b.ProductName)
		}
		return cmpString(a.ShopID, b.ShopID)
	})
	return items, nil
}

func (s *Store) GetShopInventory(_ context.Context, shopID string, productID string) (*domain.ShopInventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.shopInventory[shopID][productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyRow := row
	return &copyRow, nil
}

func (s *Store) SetShopQuantity(_ context.Context, shopID string, productID string, quantity int) (*domain.ShopInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[shopID]; !ok {
		return nil, store.ErrNotFound
	}
	product, ok := s.products[productID]
	if !ok {
		return nil, store.ErrNotFound
	}

	rows, ok := s.shopInventory[shopID]
	if !ok {
		rows = make(map[string]domain.ShopInventory)
		s.shopInventory[shopID] = rows
	}
	row, ok := rows[productID]
	if !ok {
		row = domain.ShopInventory{
			ID:            xid.New("inv"),
			ShopID:        shopID,
			ProductID:     productID,
			MinStockLevel: product.MinStockLevel,
		}
	}
	row.Quantity = quantity
	row.UpdatedAt = time.Now().UTC()
	rows[productID] = row
	updated := row
	return &updated, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) FindCustomerByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.customerByPhone[phone]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer := s.customers[id]
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Phone != "" {
		if _, exists := s.customerByPhone[customer.Phone]; exists {
			return nil, store.ErrConflict
		}
	}

	s.customers[customer.ID] = customer
	if customer.Phone != "" {
		s.customerByPhone[customer.Phone] = customer.ID
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.customers[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if customer.Phone != "" {
		if otherID, taken := s.customerByPhone[customer.Phone]; taken && otherID != customer.ID {
			return nil, store.ErrConflict
		}
	}

	if existing.Phone != "" && existing.Phone != customer.Phone {
		delete(s.customerByPhone, existing.Phone)
	}
	s.customers[customer.ID] = customer
	if customer.Phone != "" {
		s.customerByPhone[customer.Phone] = customer.ID
	}
	updated := customer
	return &updated, nil
}

// CreateCheckout runs the whole sale under one write lock so a
// concurrent checkout can never observe or cause partial state. Stock
// is verified for every line before the first mutation.
func (s *Store) CreateCheckout(_ context.Context, write store.CheckoutWrite) (*domain.CheckoutResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale := write.Sale
	if _, ok := s.shops[sale.ShopID]; !ok {
		return nil, store.ErrNotFound
	}
	rows, ok := s.shopInventory[sale.ShopID]
	if !ok {
		rows = make(map[string]domain.ShopInventory)
		s.shopInventory[sale.ShopID] = rows
	}

	for _, item := range sale.Items {
		if _, exists := s.products[item.ProductID]; !exists {
			return nil, fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrNotFound)
		}
		row, ok := rows[item.ProductID]
		if !ok || row.Quantity < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	customer := write.Customer
	if customer.Phone != "" {
		if existingID, ok := s.customerByPhone[customer.Phone]; ok {
			customer = s.customers[existingID]
		}
	}
	if _, exists := s.customers[customer.ID]; !exists {
		s.customers[customer.ID] = customer
		if customer.Phone != "" {
			s.customerByPhone[customer.Phone] = customer.ID
		}
	}
	sale.CustomerID = customer.ID

	now := time.Now().UTC()
	for _, item := range sale.Items {
		row := rows[item.ProductID]
		row.Quantity -= item.Quantity
		row.UpdatedAt = now
		rows[item.ProductID] = row
	}

	saleCopy := sale
	saleCopy.Items = slices.Clone(sale.Items)
	s.sales[sale.ID] = &saleCopy

	warranties := make([]domain.Warranty, 0, len(write.Warranties))
	for _, w := range write.Warranties {
		s.warranties[w.ID] = w
		w.DeriveStatus(now)
		warranties = append(warranties, w)
	}

	resp := &domain.CheckoutResponse{Sale: sale, Warranties: warranties}
	if write.CreditSale != nil {
		credit := *write.CreditSale
		credit.CustomerID = customer.ID
		s.creditSales[credit.ID] = credit
		creditCopy := credit
		resp.CreditSale = &creditCopy
	}

	return resp, nil
}

func (s *Store) ListSales(_ context.Context, shopID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if shopID != "" && sale.ShopID != shopID {
			continue
		}
		copySale := *sale
		copySale.Items = slices.Clone(sale.Items)
		sales = append(sales, copySale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.SaleDate.Equal(b.SaleDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.SaleDate.After(b.SaleDate) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copySale := *sale
	copySale.Items = slices.Clone(sale.Items)
	return &copySale, nil
}

func (s *Store) ListWarranties(_ context.Context) ([]domain.Warranty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	warranties := make([]domain.Warranty, 0, len(s.warranties))
	for _, w := range s.warranties {
		w.DeriveStatus(now)
		warranties = append(warranties, w)
	}
	slices.SortFunc(warranties, func(a, b domain.Warranty) int {
		if a.PurchaseDate.Equal(b.PurchaseDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.PurchaseDate.After(b.PurchaseDate) {
			return -1
		}
		return 1
	})
	return warranties, nil
}

func (s *Store) GetWarrantyByID(_ context.Context, id string) (*domain.Warranty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.warranties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	w.DeriveStatus(time.Now().UTC())
	return &w, nil
}

func (s *Store) CreateWarranty(_ context.Context, warranty domain.Warranty) (*domain.Warranty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[warranty.ProductID]; !exists {
		return nil, store.ErrNotFound
	}

	s.warranties[warranty.ID] = warranty
	warranty.DeriveStatus(time.Now().UTC())
	return &warranty, nil
}

func (s *Store) UpdateWarranty(_ context.Context, warranty domain.Warranty) (*domain.Warranty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.warranties[warranty.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.warranties[warranty.ID] = warranty
	warranty.DeriveStatus(time.Now().UTC())
	return &warranty, nil
}

// CreateTransfer reserves stock for the transfer at creation time: the
// storage decrement and the pending row are one critical section.
func (s *Store) CreateTransfer(_ context.Context, transfer domain.StockTransfer) (*domain.StockTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[transfer.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.shops[transfer.ToShopID]; !ok {
		return nil, store.ErrNotFound
	}
	if product.StorageQuantity < transfer.Quantity {
		return nil, store.ErrInsufficientStock
	}

	product.StorageQuantity -= transfer.Quantity
	product.UpdatedAt = time.Now().UTC()
	s.products[transfer.ProductID] = product

	s.transfers[transfer.ID] = transfer
	created := transfer
	return &created, nil
}

func (s *Store) ListTransfers(_ context.Context, status string) ([]domain.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfers := make([]domain.StockTransfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		if status != "" && t.Status != status {
			continue
		}
		transfers = append(transfers, t)
	}
	slices.SortFunc(transfers, func(a, b domain.StockTransfer) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return transfers, nil
}

func (s *Store) GetTransferByID(_ context.Context, id string) (*domain.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

// AdvanceTransfer applies the state machine and its stock side effect
// in one critical section. Delivery adds to the destination shop,
// cancellation returns the reserved quantity to storage.
func (s *Store) AdvanceTransfer(_ context.Context, id string, action string, at time.Time) (*domain.StockTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transfer, ok := s.transfers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	next, ok := domain.TransferTransition(transfer.Status, action)
	if !ok {
		return nil, store.ErrInvalidTransition
	}

	switch next {
	case domain.TransferStatusCompleted:
		product, ok := s.products[transfer.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		rows, ok := s.shopInventory[transfer.ToShopID]
		if !ok {
			rows = make(map[string]domain.ShopInventory)
			s.shopInventory[transfer.ToShopID] = rows
		}
		row, ok := rows[transfer.ProductID]
		if !ok {
			row = domain.ShopInventory{
				ID:            xid.New("inv"),
				ShopID:        transfer.ToShopID,
				ProductID:     transfer.ProductID,
				MinStockLevel: product.MinStockLevel,
			}
		}
		row.Quantity += transfer.Quantity
		row.UpdatedAt = at
		rows[transfer.ProductID] = row
	case domain.TransferStatusCancelled:
		product, ok := s.products[transfer.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		product.StorageQuantity += transfer.Quantity
		product.UpdatedAt = at
		s.products[transfer.ProductID] = product
	}

	transfer.Status = next
	transfer.UpdatedAt = at
	s.transfers[id] = transfer
	updated := transfer
	return &updated, nil
}

func (s *Store) ListAccountEntries(_ context.Context, shopID string) ([]domain.AccountEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.AccountEntry, 0, len(s.accountEntries))
	for _, e := range s.accountEntries {
		if shopID != "" && e.ShopID != shopID {
			continue
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b domain.AccountEntry) int {
		if a.EntryDate.Equal(b.EntryDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.EntryDate.After(b.EntryDate) {
			return -1
		}
		return 1
	})
	return entries, nil
}

func (s *Store) CreateAccountEntry(_ context.Context, entry domain.AccountEntry) (*domain.AccountEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[entry.ShopID]; !ok {
		return nil, store.ErrNotFound
	}

	s.accountEntries[entry.ID] = entry
	created := entry
	return &created, nil
}

func (s *Store) DeleteAccountEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accountEntries[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.accountEntries, id)
	return nil
}

func (s *Store) AccountSummary(_ context.Context, shopID string) (*domain.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.AccountSummary{
		ShopID:       shopID,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, e := range s.accountEntries {
		if shopID != "" && e.ShopID != shopID {
			continue
		}
		switch e.Type {
		case domain.AccountEntryIncome:
			summary.TotalIncome = summary.TotalIncome.Add(e.Amount)
		case domain.AccountEntryExpense:
			summary.TotalExpense = summary.TotalExpense.Add(e.Amount)
		}
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpense)
	return &summary, nil
}

func (s *Store) ListCreditSales(_ context.Context, openOnly bool) ([]domain.CreditSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creditSales := make([]domain.CreditSale, 0, len(s.creditSales))
	for _, cs := range s.creditSales {
		if openOnly && cs.Settled {
			continue
		}
		creditSales = append(creditSales, cs)
	}
	slices.SortFunc(creditSales, func(a, b domain.CreditSale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return creditSales, nil
}

func (s *Store) GetCreditSaleByID(_ context.Context, id string) (*domain.CreditSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.creditSales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cs, nil
}

func (s *Store) RecordCreditPayment(_ context.Context, payment domain.CreditPayment) (*domain.CreditSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.creditSales[payment.CreditSaleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if cs.Settled {
		return nil, store.ErrConflict
	}

	cs.AmountPaid = cs.AmountPaid.Add(payment.Amount)
	if cs.AmountPaid.GreaterThan(cs.TotalAmount) {
		cs.AmountPaid = cs.TotalAmount
	}
	cs.BalanceDue = cs.TotalAmount.Sub(cs.AmountPaid)
	cs.Settled = cs.BalanceDue.IsZero()
	cs.UpdatedAt = payment.PaymentDate

	s.creditSales[cs.ID] = cs
	s.creditPayments[cs.ID] = append(s.creditPayments[cs.ID], payment)
	updated := cs
	return &updated, nil
}

func (s *Store) ListCreditPayments(_ context.Context, creditSaleID string) ([]domain.CreditPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.creditSales[creditSaleID]; !ok {
		return nil, store.ErrNotFound
	}
	payments := slices.Clone(s.creditPayments[creditSaleID])
	slices.SortFunc(payments, func(a, b domain.CreditPayment) int {
		if a.PaymentDate.Equal(b.PaymentDate) {
			return cmpString(a.ID, b.ID)
		}
		if a.PaymentDate.Before(b.PaymentDate) {
			return -1
		}
		return 1
	})
	return payments, nil
}

func (s *Store) SalesSummary(_ context.Context, from time.Time, to time.Time) (*domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{TotalRevenue: decimal.Zero}
	byShop := make(map[string]*domain.SalesSummaryShop)
	byPayment := make(map[string]*domain.SalesSummaryPayment)

	for _, sale := range s.sales {
		if sale.SaleDate.Before(from) || !sale.SaleDate.Before(to) {
			continue
		}
		summary.Sales++
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.TotalAmount)

		shopRow, ok := byShop[sale.ShopID]
		if !ok {
			shopRow = &domain.SalesSummaryShop{ShopID: sale.ShopID, TotalRevenue: decimal.Zero}
			byShop[sale.ShopID] = shopRow
		}
		shopRow.Sales++
		shopRow.TotalRevenue = shopRow.TotalRevenue.Add(sale.TotalAmount)

		payRow, ok := byPayment[sale.PaymentMethod]
		if !ok {
			payRow = &domain.SalesSummaryPayment{PaymentMethod: sale.PaymentMethod, TotalRevenue: decimal.Zero}
			byPayment[sale.PaymentMethod] = payRow
		}
		payRow.Sales++
		payRow.TotalRevenue = payRow.TotalRevenue.Add(sale.TotalAmount)
	}

	for _, row := range byShop {
		summary.ByShop = append(summary.ByShop, *row)
	}
	for _, row := range byPayment {
		summary.ByPayment = append(summary.ByPayment, *row)
	}
	slices.SortFunc(summary.ByShop, func(a, b domain.SalesSummaryShop) int {
		return cmpString(a.ShopID, b.ShopID)
	})
	slices.SortFunc(summary.ByPayment, func(a, b domain.SalesSummaryPayment) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	return &summary, nil
}

func (s *Store) ListLowStock(_ context.Context) ([]domain.LowStockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.LowStockItem, 0)
	for _, p := range s.products {
		if p.StorageQuantity <= p.MinStockLevel {
			items = append(items, domain.LowStockItem{
				ProductID:     p.ID,
				ProductName:   p.Name,
				Location:      domain.TransferLocationStorage,
				Quantity:      p.StorageQuantity,
				MinStockLevel: p.MinStockLevel,
			})
		}
	}
	for shopID, rows := range s.shopInventory {
		shop, ok := s.shops[shopID]
		if !ok {
			continue
		}
		for _, row := range rows {
			if row.Quantity > row.MinStockLevel {
				continue
			}
			product, ok := s.products[row.ProductID]
			if !ok {
				continue
			}
			items = append(items, domain.LowStockItem{
				ProductID:     product.ID,
				ProductName:   product.Name,
				Location:      shop.Name,
				ShopID:        shopID,
				Quantity:      row.Quantity,
				MinStockLevel: row.MinStockLevel,
			})
		}
	}
	slices.SortFunc(items, func(a, b domain.LowStockItem) int {
		if a.Location == b.Location {
			return cmpString(a.ProductName, b.ProductName)
		}
		return cmpString(a.Location, b.Location)
	})
	return items, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; !exists {
		return nil, store.ErrNotFound
	}
	s.usersByUsername[user.Username] = user
	updated := user
	return &updated, nil
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}
