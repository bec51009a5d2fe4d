package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
	"github.com/NabeelMohideen/StockSync/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, name, brand, sku, category, size, price, cost, has_serial_numbers,
	warranty_months, storage_quantity, min_stock_level, image_url, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.SKU, &p.Category, &p.Size, &p.Price, &p.Cost,
		&p.HasSerialNumbers, &p.WarrantyMonths, &p.StorageQuantity, &p.MinStockLevel,
		&p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY brand, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, brand, sku, category, size, price, cost, has_serial_numbers,
			warranty_months, storage_quantity, min_stock_level, image_url, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, product.ID, product.Name, product.Brand, product.SKU, product.Category, product.Size,
		product.Price, product.Cost, product.HasSerialNumbers, product.WarrantyMonths,
		product.StorageQuantity, product.MinStockLevel, product.ImageURL,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, brand = $3, category = $4, size = $5, price = $6, cost = $7,
			has_serial_numbers = $8, warranty_months = $9, min_stock_level = $10,
			image_url = $11, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Brand, product.Category, product.Size,
		product.Price, product.Cost, product.HasSerialNumbers, product.WarrantyMonths,
		product.MinStockLevel, product.ImageURL)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var held int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM shop_inventory
		WHERE product_id = $1
	`, id).Scan(&held)
	if err != nil {
		return err
	}
	if held > 0 {
		return store.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shop_inventory WHERE product_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) SetStorageQuantity(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET storage_quantity = $2, updated_at = now()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, productID)
}

func (s *Store) ListShops(ctx context.Context) ([]domain.Shop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, phone, is_active, created_at
		FROM shops
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shops := make([]domain.Shop, 0, 16)
	for rows.Next() {
		var shop domain.Shop
		if err := rows.Scan(&shop.ID, &shop.Name, &shop.Location, &shop.Phone, &shop.IsActive, &shop.CreatedAt); err != nil {
			return nil, err
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shops, nil
}

func (s *Store) GetShopByID(ctx context.Context, id string) (*domain.Shop, error) {
	var shop domain.Shop
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, location, phone, is_active, created_at
		FROM shops
		WHERE id = $1
	`, id).Scan(&shop.ID, &shop.Name, &shop.Location, &shop.Phone, &shop.IsActive, &shop.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shop, nil
}

func (s *Store) CreateShop(ctx context.Context, shop domain.Shop) (*domain.Shop, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shops (id, name, location, phone, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, shop.ID, shop.Name, shop.Location, shop.Phone, shop.IsActive, shop.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := shop
	return &created, nil
}

func (s *Store) UpdateShop(ctx context.Context, shop domain.Shop) (*domain.Shop, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shops
		SET name = $2, location = $3, phone = $4, is_active = $5
		WHERE id = $1
	`, shop.ID, shop.Name, shop.Location, shop.Phone, shop.IsActive)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := shop
	return &updated, nil
}

func (s *Store) DeleteShop(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var held int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM shop_inventory
		WHERE shop_id = $1
	`, id).Scan(&held)
	if err != nil {
		return err
	}
	if held > 0 {
		return store.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shop_inventory WHERE shop_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) ListInventory(ctx context.Context, shopID string) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.shop_id, i.product_id, i.quantity, i.min_stock_level, i.updated_at,
			p.name, p.brand, p.sku, p.price
		FROM shop_inventory i
		JOIN products p ON p.id = i.product_id
		WHERE $1 = '' OR i.shop_id = $1
		ORDER BY i.shop_id, p.name
	`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.ShopID, &item.ProductID, &item.Quantity,
			&item.MinStockLevel, &item.UpdatedAt,
			&item.ProductName, &item.ProductBrand, &item.ProductSKU, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetShopInventory(ctx context.Context, shopID string, productID string) (*domain.ShopInventory, error) {
	var row domain.ShopInventory
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, product_id, quantity, min_stock_level, updated_at
		FROM shop_inventory
		WHERE shop_id = $1 AND product_id = $2
	`, shopID, productID).Scan(&row.ID, &row.ShopID, &row.ProductID, &row.Quantity, &row.MinStockLevel, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *Store) SetShopQuantity(ctx context.Context, shopID string, productID string, quantity int) (*domain.ShopInventory, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var minStock int
	err = tx.QueryRowContext(ctx, `SELECT min_stock_level FROM products WHERE id = $1`, productID).Scan(&minStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var shopExists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shops WHERE id = $1)`, shopID).Scan(&shopExists); err != nil {
		return nil, err
	}
	if !shopExists {
		return nil, store.ErrNotFound
	}

	var row domain.ShopInventory
	err = tx.QueryRowContext(ctx, `
		INSERT INTO shop_inventory (id, shop_id, product_id, quantity, min_stock_level, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (shop_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING id, shop_id, product_id, quantity, min_stock_level, updated_at
	`, xid.New("inv"), shopID, productID, quantity, minStock).Scan(
		&row.ID, &row.ShopID, &row.ProductID, &row.Quantity, &row.MinStockLevel, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) FindCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		WHERE phone = $1
	`, phone).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.Email, customer.Address, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5
		WHERE id = $1
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.Email, customer.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := customer
	return &updated, nil
}

// CreateCheckout runs the whole sale in one serializable transaction.
// Shop inventory rows are locked up front and verified before the first
// write; the decrement itself is conditional on quantity so the stock
// invariant holds even outside this code path.
func (s *Store) CreateCheckout(ctx context.Context, write store.CheckoutWrite) (*domain.CheckoutResponse, error) {
	sale := write.Sale

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	productIDs := make([]string, 0, len(sale.Items))
	for _, item := range sale.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	stockRows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM shop_inventory
		WHERE shop_id = $1 AND product_id = ANY($2)
		FOR UPDATE
	`, sale.ShopID, productIDs)
	if err != nil {
		return nil, err
	}
	stockMap := make(map[string]int, len(productIDs))
	for stockRows.Next() {
		var productID string
		var qty int
		if err := stockRows.Scan(&productID, &qty); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stockMap[productID] = qty
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

	for _, item := range sale.Items {
		qty, exists := stockMap[item.ProductID]
		if !exists || qty < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	customer := write.Customer
	if customer.Phone != "" {
		var existing domain.Customer
		err := tx.QueryRowContext(ctx, `
			SELECT id, name, phone, email, address, created_at
			FROM customers
			WHERE phone = $1
		`, customer.Phone).Scan(&existing.ID, &existing.Name, &existing.Phone, &existing.Email, &existing.Address, &existing.CreatedAt)
		switch {
		case err == nil:
			customer = existing
		case errors.Is(err, sql.ErrNoRows):
		default:
			return nil, err
		}
	}
	var customerExists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customer.ID).Scan(&customerExists); err != nil {
		return nil, err
	}
	if !customerExists {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, phone, email, address, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.Email, customer.Address, customer.CreatedAt)
		if err != nil {
			return nil, err
		}
	}
	sale.CustomerID = customer.ID

	for _, item := range sale.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE shop_inventory
			SET quantity = quantity - $1, updated_at = now()
			WHERE shop_id = $2 AND product_id = $3 AND quantity >= $1
		`, item.Quantity, sale.ShopID, item.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, shop_id, customer_id, customer_name, customer_phone,
			sale_date, payment_method, notes, total_amount, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, sale.ShopID, sale.CustomerID, sale.CustomerName, sale.CustomerPhone,
		sale.SaleDate, sale.PaymentMethod, sale.Notes, sale.TotalAmount, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, line_total, serial_number)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, sale.ID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal, item.SerialNumber)
		if err != nil {
			return nil, err
		}
	}

	warranties := make([]domain.Warranty, 0, len(write.Warranties))
	now := time.Now().UTC()
	for _, w := range write.Warranties {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO warranties (
				id, sale_id, product_id, customer_name, customer_phone,
				period_months, purchase_date, expiry_date, serial_number, claimed, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, w.ID, nullIfEmpty(w.SaleID), w.ProductID, w.CustomerName, w.CustomerPhone,
			w.PeriodMonths, w.PurchaseDate, w.ExpiryDate, w.SerialNumber, w.Claimed, w.CreatedAt)
		if err != nil {
			return nil, err
		}
		w.DeriveStatus(now)
		warranties = append(warranties, w)
	}

	resp := &domain.CheckoutResponse{Sale: sale, Warranties: warranties}
	if write.CreditSale != nil {
		credit := *write.CreditSale
		credit.CustomerID = customer.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credit_sales (
				id, sale_id, customer_id, customer_name, customer_phone,
				total_amount, amount_paid, balance_due, settled, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, credit.ID, credit.SaleID, credit.CustomerID, credit.CustomerName, credit.CustomerPhone,
			credit.TotalAmount, credit.AmountPaid, credit.BalanceDue, credit.Settled,
			credit.CreatedAt, credit.UpdatedAt)
		if err != nil {
			return nil, err
		}
		resp.CreditSale = &credit
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Store) ListSales(ctx context.Context, shopID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, customer_id, customer_name, customer_phone,
			sale_date, payment_method, notes, total_amount, created_at
		FROM sales
		WHERE $1 = '' OR shop_id = $1
		ORDER BY sale_date DESC, id DESC
		LIMIT $2
	`, shopID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ShopID, &sale.CustomerID, &sale.CustomerName,
			&sale.CustomerPhone, &sale.SaleDate, &sale.PaymentMethod, &sale.Notes,
			&sale.TotalAmount, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := s.listSaleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, customer_id, customer_name, customer_phone,
			sale_date, payment_method, notes, total_amount, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.ShopID, &sale.CustomerID, &sale.CustomerName,
		&sale.CustomerPhone, &sale.SaleDate, &sale.PaymentMethod, &sale.Notes,
		&sale.TotalAmount, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.listSaleItems(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) listSaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, p.name, si.quantity, si.unit_price, si.line_total, si.serial_number
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.SerialNumber); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const warrantyColumns = `w.id, COALESCE(w.sale_id, ''), w.product_id, p.name, w.customer_name,
	w.customer_phone, w.period_months, w.purchase_date, w.expiry_date, w.serial_number, w.claimed, w.created_at`

func scanWarranty(row interface{ Scan(...any) error }) (domain.Warranty, error) {
	var w domain.Warranty
	err := row.Scan(&w.ID, &w.SaleID, &w.ProductID, &w.ProductName, &w.CustomerName,
		&w.CustomerPhone, &w.PeriodMonths, &w.PurchaseDate, &w.ExpiryDate,
		&w.SerialNumber, &w.Claimed, &w.CreatedAt)
	return w, err
}

func (s *Store) ListWarranties(ctx context.Context) ([]domain.Warranty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+warrantyColumns+`
		FROM warranties w
		JOIN products p ON p.id = w.product_id
		ORDER BY w.purchase_date DESC, w.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	warranties := make([]domain.Warranty, 0, 64)
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, err
		}
		w.DeriveStatus(now)
		warranties = append(warranties, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return warranties, nil
}

func (s *Store) GetWarrantyByID(ctx context.Context, id string) (*domain.Warranty, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+warrantyColumns+`
		FROM warranties w
		JOIN products p ON p.id = w.product_id
		WHERE w.id = $1
	`, id)
	w, err := scanWarranty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	w.DeriveStatus(time.Now().UTC())
	return &w, nil
}

func (s *Store) CreateWarranty(ctx context.Context, warranty domain.Warranty) (*domain.Warranty, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warranties (
			id, sale_id, product_id, customer_name, customer_phone,
			period_months, purchase_date, expiry_date, serial_number, claimed, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, warranty.ID, nullIfEmpty(warranty.SaleID), warranty.ProductID, warranty.CustomerName,
		warranty.CustomerPhone, warranty.PeriodMonths, warranty.PurchaseDate, warranty.ExpiryDate,
		warranty.SerialNumber, warranty.Claimed, warranty.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	warranty.DeriveStatus(time.Now().UTC())
	return &warranty, nil
}

func (s *Store) UpdateWarranty(ctx context.Context, warranty domain.Warranty) (*domain.Warranty, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE warranties
		SET period_months = $2, expiry_date = $3, serial_number = $4, claimed = $5
		WHERE id = $1
	`, warranty.ID, warranty.PeriodMonths, warranty.ExpiryDate, warranty.SerialNumber, warranty.Claimed)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	warranty.DeriveStatus(time.Now().UTC())
	return &warranty, nil
}

// CreateTransfer reserves the quantity at creation: the conditional
// storage decrement and the pending row commit together.
func (s *Store) CreateTransfer(ctx context.Context, transfer domain.StockTransfer) (*domain.StockTransfer, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var storageQty int
	err = tx.QueryRowContext(ctx, `
		SELECT storage_quantity
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, transfer.ProductID).Scan(&storageQty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if storageQty < transfer.Quantity {
		return nil, store.ErrInsufficientStock
	}

	var shopExists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shops WHERE id = $1)`, transfer.ToShopID).Scan(&shopExists); err != nil {
		return nil, err
	}
	if !shopExists {
		return nil, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET storage_quantity = storage_quantity - $1, updated_at = now()
		WHERE id = $2
	`, transfer.Quantity, transfer.ProductID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_transfers (
			id, product_id, from_location, to_shop_id, quantity,
			transfer_date, status, notes, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, transfer.ID, transfer.ProductID, transfer.FromLocation, transfer.ToShopID,
		transfer.Quantity, transfer.TransferDate, transfer.Status, transfer.Notes,
		transfer.CreatedAt, transfer.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := transfer
	return &created, nil
}

const transferColumns = `t.id, t.product_id, p.name, t.from_location, t.to_shop_id, t.quantity,
	t.transfer_date, t.status, t.notes, t.created_at, t.updated_at`

func scanTransfer(row interface{ Scan(...any) error }) (domain.StockTransfer, error) {
	var t domain.StockTransfer
	err := row.Scan(&t.ID, &t.ProductID, &t.ProductName, &t.FromLocation, &t.ToShopID,
		&t.Quantity, &t.TransferDate, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) ListTransfers(ctx context.Context, status string) ([]domain.StockTransfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transferColumns+`
		FROM stock_transfers t
		JOIN products p ON p.id = t.product_id
		WHERE $1 = '' OR t.status = $1
		ORDER BY t.created_at DESC, t.id DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transfers := make([]domain.StockTransfer, 0, 32)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transfers, nil
}

func (s *Store) GetTransferByID(ctx context.Context, id string) (*domain.StockTransfer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transferColumns+`
		FROM stock_transfers t
		JOIN products p ON p.id = t.product_id
		WHERE t.id = $1
	`, id)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// AdvanceTransfer locks the transfer row, applies the state machine and
// the matching stock side effect, and commits all of it together.
func (s *Store) AdvanceTransfer(ctx context.Context, id string, action string, at time.Time) (*domain.StockTransfer, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var transfer domain.StockTransfer
	err = tx.QueryRowContext(ctx, `
		SELECT id, product_id, from_location, to_shop_id, quantity, transfer_date, status, notes, created_at, updated_at
		FROM stock_transfers
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&transfer.ID, &transfer.ProductID, &transfer.FromLocation, &transfer.ToShopID,
		&transfer.Quantity, &transfer.TransferDate, &transfer.Status, &transfer.Notes,
		&transfer.CreatedAt, &transfer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	next, ok := domain.TransferTransition(transfer.Status, action)
	if !ok {
		return nil, store.ErrInvalidTransition
	}

	switch next {
	case domain.TransferStatusCompleted:
		var minStock int
		err = tx.QueryRowContext(ctx, `SELECT min_stock_level FROM products WHERE id = $1`, transfer.ProductID).Scan(&minStock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shop_inventory (id, shop_id, product_id, quantity, min_stock_level, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (shop_id, product_id)
			DO UPDATE SET quantity = shop_inventory.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		`, xid.New("inv"), transfer.ToShopID, transfer.ProductID, transfer.Quantity, minStock, at)
		if err != nil {
			return nil, err
		}
	case domain.TransferStatusCancelled:
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET storage_quantity = storage_quantity + $1, updated_at = now()
			WHERE id = $2
		`, transfer.Quantity, transfer.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stock_transfers
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, id, next, at)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	transfer.Status = next
	transfer.UpdatedAt = at
	return &transfer, nil
}

func (s *Store) ListAccountEntries(ctx context.Context, shopID string) ([]domain.AccountEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, transaction_type, category, amount, entry_date, notes, created_at
		FROM account_entries
		WHERE $1 = '' OR shop_id = $1
		ORDER BY entry_date DESC, id DESC
	`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AccountEntry, 0, 64)
	for rows.Next() {
		var e domain.AccountEntry
		if err := rows.Scan(&e.ID, &e.ShopID, &e.Type, &e.Category, &e.Amount, &e.EntryDate, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateAccountEntry(ctx context.Context, entry domain.AccountEntry) (*domain.AccountEntry, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_entries (id, shop_id, transaction_type, category, amount, entry_date, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ShopID, entry.Type, entry.Category, entry.Amount, entry.EntryDate, entry.Notes, entry.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := entry
	return &created, nil
}

func (s *Store) DeleteAccountEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM account_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AccountSummary(ctx context.Context, shopID string) (*domain.AccountSummary, error) {
	summary := domain.AccountSummary{ShopID: shopID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'expense'), 0)
		FROM account_entries
		WHERE $1 = '' OR shop_id = $1
	`, shopID).Scan(&summary.TotalIncome, &summary.TotalExpense)
	if err != nil {
		return nil, err
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpense)
	return &summary, nil
}

const creditSaleColumns = `id, sale_id, customer_id, customer_name, customer_phone,
	total_amount, amount_paid, balance_due, settled, created_at, updated_at`

func scanCreditSale(row interface{ Scan(...any) error }) (domain.CreditSale, error) {
	var cs domain.CreditSale
	err := row.Scan(&cs.ID, &cs.SaleID, &cs.CustomerID, &cs.CustomerName, &cs.CustomerPhone,
		&cs.TotalAmount, &cs.AmountPaid, &cs.BalanceDue, &cs.Settled, &cs.CreatedAt, &cs.UpdatedAt)
	return cs, err
}

func (s *Store) ListCreditSales(ctx context.Context, openOnly bool) ([]domain.CreditSale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+creditSaleColumns+`
		FROM credit_sales
		WHERE $1 = false OR settled = false
		ORDER BY created_at DESC, id DESC
	`, openOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creditSales := make([]domain.CreditSale, 0, 32)
	for rows.Next() {
		cs, err := scanCreditSale(rows)
		if err != nil {
			return nil, err
		}
		creditSales = append(creditSales, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return creditSales, nil
}

func (s *Store) GetCreditSaleByID(ctx context.Context, id string) (*domain.CreditSale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+creditSaleColumns+`
		FROM credit_sales
		WHERE id = $1
	`, id)
	cs, err := scanCreditSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &cs, nil
}

func (s *Store) RecordCreditPayment(ctx context.Context, payment domain.CreditPayment) (*domain.CreditSale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+creditSaleColumns+`
		FROM credit_sales
		WHERE id = $1
		FOR UPDATE
	`, payment.CreditSaleID)
	cs, err := scanCreditSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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

	_, err = tx.ExecContext(ctx, `
		UPDATE credit_sales
		SET amount_paid = $2, balance_due = $3, settled = $4, updated_at = $5
		WHERE id = $1
	`, cs.ID, cs.AmountPaid, cs.BalanceDue, cs.Settled, cs.UpdatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_payments (id, credit_sale_id, amount, payment_date, method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.CreditSaleID, payment.Amount, payment.PaymentDate, payment.Method, payment.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *Store) ListCreditPayments(ctx context.Context, creditSaleID string) ([]domain.CreditPayment, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM credit_sales WHERE id = $1)`, creditSaleID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credit_sale_id, amount, payment_date, method, created_at
		FROM credit_payments
		WHERE credit_sale_id = $1
		ORDER BY payment_date, id
	`, creditSaleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.CreditPayment, 0, 8)
	for rows.Next() {
		var p domain.CreditPayment
		if err := rows.Scan(&p.ID, &p.CreditSaleID, &p.Amount, &p.PaymentDate, &p.Method, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) SalesSummary(ctx context.Context, from time.Time, to time.Time) (*domain.SalesSummary, error) {
	summary := domain.SalesSummary{TotalRevenue: decimal.Zero}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
	`, from, to).Scan(&summary.Sales, &summary.TotalRevenue)
	if err != nil {
		return nil, err
	}

	shopRows, err := s.db.QueryContext(ctx, `
		SELECT shop_id, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
		GROUP BY shop_id
		ORDER BY shop_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer shopRows.Close()
	for shopRows.Next() {
		var row domain.SalesSummaryShop
		if err := shopRows.Scan(&row.ShopID, &row.Sales, &row.TotalRevenue); err != nil {
			return nil, err
		}
		summary.ByShop = append(summary.ByShop, row)
	}
	if err := shopRows.Err(); err != nil {
		return nil, err
	}

	payRows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var row domain.SalesSummaryPayment
		if err := payRows.Scan(&row.PaymentMethod, &row.Sales, &row.TotalRevenue); err != nil {
			return nil, err
		}
		summary.ByPayment = append(summary.ByPayment, row)
	}
	if err := payRows.Err(); err != nil {
		return nil, err
	}

	return &summary, nil
}

func (s *Store) ListLowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, location, shop_id, quantity, min_stock_level
		FROM (
			SELECT p.id AS product_id, p.name AS product_name, 'storage' AS location,
				'' AS shop_id, p.storage_quantity AS quantity, p.min_stock_level
			FROM products p
			WHERE p.storage_quantity <= p.min_stock_level
			UNION ALL
			SELECT p.id, p.name, sh.name, i.shop_id, i.quantity, i.min_stock_level
			FROM shop_inventory i
			JOIN products p ON p.id = i.product_id
			JOIN shops sh ON sh.id = i.shop_id
			WHERE i.quantity <= i.min_stock_level
		) low
		ORDER BY location, product_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LowStockItem, 0, 32)
	for rows.Next() {
		var item domain.LowStockItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Location, &item.ShopID,
			&item.Quantity, &item.MinStockLevel); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, COALESCE(assigned_shop_id, ''), active, created_at
		FROM user_accounts
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.AssignedShopID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, COALESCE(assigned_shop_id, ''), active, created_at
		FROM user_accounts
		WHERE username = $1
	`, username).Scan(&u.Username, &u.Password, &u.Role, &u.AssignedShopID, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_accounts (username, password_hash, role, assigned_shop_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.Role, nullIfEmpty(user.AssignedShopID), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_accounts
		SET password_hash = $2, role = $3, assigned_shop_id = $4, active = $5
		WHERE username = $1
	`, user.Username, user.Password, user.Role, nullIfEmpty(user.AssignedShopID), user.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := user
	return &updated, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
