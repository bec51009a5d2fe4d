package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
	"github.com/NabeelMohideen/StockSync/internal/xid"
)

// Checkout runs the point-of-sale workflow: validate the cart, price
// the lines, and hand the whole write set to the repository as one
// atomic unit. Stock is never decremented for a sale that fails.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	req.ShopID = strings.TrimSpace(req.ShopID)
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	if err := s.validateStruct(req); err != nil {
		return domain.CheckoutResponse{}, err
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodCash
	}
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: unknown payment method %s", store.ErrValidation, req.PaymentMethod)
	}

	shopID, err := scopedShop(ctx, req.ShopID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if _, err := s.repo.GetShopByID(ctx, shopID); err != nil {
		return domain.CheckoutResponse{}, err
	}

	seen := make(map[string]struct{}, len(req.Lines))
	products := make([]*domain.Product, 0, len(req.Lines))
	serialsRequired := false
	for _, line := range req.Lines {
		if _, dup := seen[line.ProductID]; dup {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: duplicate product %s in cart", store.ErrValidation, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}

		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		if product.HasSerialNumbers {
			serialsRequired = true
			if strings.TrimSpace(line.SerialNumber) == "" {
				return domain.CheckoutResponse{}, fmt.Errorf("%w: serial number required for %s", store.ErrValidation, product.Name)
			}
		}
		products = append(products, product)
	}
	if serialsRequired && req.Customer.Phone == "" {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: customer phone required for serialized products", store.ErrValidation)
	}

	now := time.Now().UTC()
	saleID := xid.New("sale")
	total := decimal.Zero
	items := make([]domain.SaleItem, 0, len(req.Lines))
	warranties := make([]domain.Warranty, 0, len(req.Lines))

	for i, line := range req.Lines {
		product := products[i]

		unitPrice := line.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = product.Price
		}
		if unitPrice.IsNegative() {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: unit price must not be negative", store.ErrValidation)
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)

		items = append(items, domain.SaleItem{
			ID:           xid.New("item"),
			SaleID:       saleID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     line.Quantity,
			UnitPrice:    unitPrice,
			LineTotal:    lineTotal,
			SerialNumber: strings.TrimSpace(line.SerialNumber),
		})

		months := product.WarrantyMonths
		if months < 1 {
			months = 12
		}
		warranties = append(warranties, domain.Warranty{
			ID:            xid.New("war"),
			SaleID:        saleID,
			ProductID:     product.ID,
			ProductName:   product.Name,
			CustomerName:  req.Customer.Name,
			CustomerPhone: req.Customer.Phone,
			PeriodMonths:  months,
			PurchaseDate:  now,
			ExpiryDate:    domain.WarrantyExpiry(now, months),
			SerialNumber:  strings.TrimSpace(line.SerialNumber),
			CreatedAt:     now,
		})
	}

	write := store.CheckoutWrite{
		Sale: domain.Sale{
			ID:            saleID,
			ShopID:        shopID,
			CustomerName:  req.Customer.Name,
			CustomerPhone: req.Customer.Phone,
			SaleDate:      now,
			PaymentMethod: req.PaymentMethod,
			Notes:         strings.TrimSpace(req.Notes),
			TotalAmount:   total,
			CreatedAt:     now,
			Items:         items,
		},
		Customer: domain.Customer{
			ID:        xid.New("cust"),
			Name:      req.Customer.Name,
			Phone:     req.Customer.Phone,
			Email:     strings.TrimSpace(req.Customer.Email),
			Address:   strings.TrimSpace(req.Customer.Address),
			CreatedAt: now,
		},
		Warranties: warranties,
	}
	if req.PaymentMethod == domain.PaymentMethodCredit {
		write.CreditSale = &domain.CreditSale{
			ID:            xid.New("credit"),
			SaleID:        saleID,
			CustomerName:  req.Customer.Name,
			CustomerPhone: req.Customer.Phone,
			TotalAmount:   total,
			AmountPaid:    decimal.Zero,
			BalanceDue:    total,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	resp, err := s.repo.CreateCheckout(ctx, write)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.audit(ctx, "checkout", "sale", resp.Sale.ID, fmt.Sprintf("shop=%s,lines=%d,total=%s,payment=%s", shopID, len(items), total, req.PaymentMethod))
	return *resp, nil
}

func (s *Service) ListSales(ctx context.Context, shopID string, limit int) ([]domain.Sale, error) {
	shopID, err := scopedShop(ctx, strings.TrimSpace(shopID))
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListSales(ctx, shopID, limit)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleSalesPerson && sale.ShopID != actor.ShopID {
		return domain.Sale{}, fmt.Errorf("%w: sale belongs to another shop", ErrForbidden)
	}
	return *sale, nil
}
