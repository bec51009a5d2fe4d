package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/NabeelMohideen/StockSync/internal/cache"
	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/store"
	"github.com/NabeelMohideen/StockSync/internal/xid"
)

// ErrForbidden marks an operation the authenticated actor is not
// allowed to perform, distinct from a missing or invalid token.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	reports   cache.ReportCache
	validate  *validator.Validate
	log       *logrus.Logger
	reportTTL time.Duration
}

func New(repo store.Repository, reports cache.ReportCache, logger *logrus.Logger, reportTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	if reportTTL < time.Second {
		reportTTL = time.Minute
	}

	return &Service{
		repo:      repo,
		reports:   reports,
		validate:  validator.New(),
		log:       logger,
		reportTTL: reportTTL,
	}
}

func (s *Service) validateStruct(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return nil
}

// scopedShop resolves the shop a sales person is allowed to operate
// on. Other roles pass through unchanged.
func scopedShop(ctx context.Context, requested string) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleSalesPerson {
		return requested, nil
	}
	if actor.ShopID == "" {
		return "", fmt.Errorf("%w: no shop assigned", ErrForbidden)
	}
	if requested != "" && requested != actor.ShopID {
		return "", fmt.Errorf("%w: shop %s not assigned", ErrForbidden, requested)
	}
	return actor.ShopID, nil
}

func (s *Service) audit(ctx context.Context, action string, entity string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	s.log.WithFields(logrus.Fields{
		"actor":     actor.Username,
		"role":      actor.Role,
		"action":    action,
		"entity":    entity,
		"entity_id": entityID,
		"detail":    detail,
	}).Info("audit")
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	if err := s.validateStruct(req); err != nil {
		return domain.Product{}, err
	}
	if req.Price.IsNegative() || req.Cost.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: price and cost must not be negative", store.ErrValidation)
	}
	if req.WarrantyMonths == 0 {
		req.WarrantyMonths = 12
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:               xid.New("prod"),
		Name:             req.Name,
		Brand:            req.Brand,
		SKU:              req.SKU,
		Category:         strings.TrimSpace(req.Category),
		Size:             strings.TrimSpace(req.Size),
		Price:            req.Price,
		Cost:             req.Cost,
		HasSerialNumbers: req.HasSerialNumbers,
		WarrantyMonths:   req.WarrantyMonths,
		StorageQuantity:  req.StorageQuantity,
		MinStockLevel:    req.MinStockLevel,
		ImageURL:         strings.TrimSpace(req.ImageURL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.audit(ctx, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,name=%s", created.SKU, created.Name))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id required", store.ErrValidation)
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name must not be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Brand != nil {
		brand := strings.TrimSpace(*req.Brand)
		if brand == "" {
			return domain.Product{}, fmt.Errorf("%w: brand must not be empty", store.ErrValidation)
		}
		updated.Brand = brand
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Size != nil {
		updated.Size = strings.TrimSpace(*req.Size)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
		}
		updated.Price = *req.Price
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return domain.Product{}, fmt.Errorf("%w: cost must not be negative", store.ErrValidation)
		}
		updated.Cost = *req.Cost
	}
	if req.HasSerialNumbers != nil {
		updated.HasSerialNumbers = *req.HasSerialNumbers
	}
	if req.WarrantyMonths != nil {
		if *req.WarrantyMonths < 0 {
			return domain.Product{}, fmt.Errorf("%w: warranty months must not be negative", store.ErrValidation)
		}
		updated.WarrantyMonths = *req.WarrantyMonths
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return domain.Product{}, fmt.Errorf("%w: min stock level must not be negative", store.ErrValidation)
		}
		updated.MinStockLevel = *req.MinStockLevel
	}
	if req.ImageURL != nil {
		updated.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.audit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("sku=%s", saved.SKU))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: product id required", store.ErrValidation)
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "product_delete", "product", id, "")
	return nil
}

func (s *Service) SetStorageQuantity(ctx context.Context, productID string, quantity int) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id required", store.ErrValidation)
	}
	if quantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}

	updated, err := s.repo.SetStorageQuantity(ctx, productID, quantity)
	if err != nil {
		return domain.Product{}, err
	}
	s.audit(ctx, "storage_set", "product", productID, fmt.Sprintf("quantity=%d", quantity))
	return *updated, nil
}

func (s *Service) ListShops(ctx context.Context) ([]domain.Shop, error) {
	return s.repo.ListShops(ctx)
}

func (s *Service) GetShop(ctx context.Context, id string) (domain.Shop, error) {
	shop, err := s.repo.GetShopByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Shop{}, err
	}
	return *shop, nil
}

func (s *Service) CreateShop(ctx context.Context, req domain.ShopCreateRequest) (domain.Shop, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateStruct(req); err != nil {
		return domain.Shop{}, err
	}

	shop := domain.Shop{
		ID:        xid.New("shop"),
		Name:      req.Name,
		Location:  strings.TrimSpace(req.Location),
		Phone:     strings.TrimSpace(req.Phone),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateShop(ctx, shop)
	if err != nil {
		return domain.Shop{}, err
	}
	s.audit(ctx, "shop_create", "shop", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateShop(ctx context.Context, id string, req domain.ShopUpdateRequest) (domain.Shop, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Shop{}, fmt.Errorf("%w: shop id required", store.ErrValidation)
	}

	existing, err := s.repo.GetShopByID(ctx, id)
	if err != nil {
		return domain.Shop{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Shop{}, fmt.Errorf("%w: name must not be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Location != nil {
		updated.Location = strings.TrimSpace(*req.Location)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateShop(ctx, updated)
	if err != nil {
		return domain.Shop{}, err
	}
	s.audit(ctx, "shop_update", "shop", saved.ID, saved.Name)
	return *saved, nil
}

func (s *Service) DeleteShop(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: shop id required", store.ErrValidation)
	}
	if err := s.repo.DeleteShop(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "shop_delete", "shop", id, "")
	return nil
}

func (s *Service) ListInventory(ctx context.Context, shopID string) ([]domain.InventoryItem, error) {
	shopID, err := scopedShop(ctx, strings.TrimSpace(shopID))
	if err != nil {
		return nil, err
	}
	return s.repo.ListInventory(ctx, shopID)
}

func (s *Service) SetShopQuantity(ctx context.Context, shopID string, productID string, quantity int) (domain.ShopInventory, error) {
	shopID = strings.TrimSpace(shopID)
	productID = strings.TrimSpace(productID)
	if shopID == "" || productID == "" {
		return domain.ShopInventory{}, fmt.Errorf("%w: shop id and product id required", store.ErrValidation)
	}
	if quantity < 0 {
		return domain.ShopInventory{}, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}

	updated, err := s.repo.SetShopQuantity(ctx, shopID, productID, quantity)
	if err != nil {
		return domain.ShopInventory{}, err
	}
	s.audit(ctx, "shop_stock_set", "shop_inventory", updated.ID, fmt.Sprintf("shop=%s,product=%s,quantity=%d", shopID, productID, quantity))
	return *updated, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validateStruct(req); err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		ID:        xid.New("cust"),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     strings.TrimSpace(req.Email),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.audit(ctx, "customer_create", "customer", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id required", store.ErrValidation)
	}

	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, fmt.Errorf("%w: name must not be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	s.audit(ctx, "customer_update", "customer", saved.ID, saved.Name)
	return *saved, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, username string) (domain.UserAccount, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return domain.UserAccount{}, err
	}
	result := *user
	result.Password = ""
	return result, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserAccount, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if err := s.validateStruct(req); err != nil {
		return domain.UserAccount{}, err
	}
	if req.Role == domain.RoleSalesPerson && strings.TrimSpace(req.AssignedShopID) == "" {
		return domain.UserAccount{}, fmt.Errorf("%w: sales person needs an assigned shop", store.ErrValidation)
	}
	if req.Role != domain.RoleSalesPerson {
		req.AssignedShopID = ""
	}
	if req.AssignedShopID != "" {
		if _, err := s.repo.GetShopByID(ctx, req.AssignedShopID); err != nil {
			return domain.UserAccount{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.UserAccount{
		Username:       req.Username,
		Password:       string(hash),
		Role:           req.Role,
		AssignedShopID: strings.TrimSpace(req.AssignedShopID),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.UserAccount{}, err
	}

	s.audit(ctx, "user_create", "user", user.Username, user.Role)
	user.Password = ""
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, username string, req domain.UserUpdateRequest) (domain.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return domain.UserAccount{}, fmt.Errorf("%w: username required", store.ErrValidation)
	}

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.UserAccount{}, err
	}

	updated := *existing
	if req.Role != nil {
		if !domain.ValidRole(*req.Role) {
			return domain.UserAccount{}, fmt.Errorf("%w: unknown role %s", store.ErrValidation, *req.Role)
		}
		updated.Role = *req.Role
	}
	if req.AssignedShopID != nil {
		updated.AssignedShopID = strings.TrimSpace(*req.AssignedShopID)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if updated.Role == domain.RoleSalesPerson {
		if updated.AssignedShopID == "" {
			return domain.UserAccount{}, fmt.Errorf("%w: sales person needs an assigned shop", store.ErrValidation)
		}
		if _, err := s.repo.GetShopByID(ctx, updated.AssignedShopID); err != nil {
			return domain.UserAccount{}, err
		}
	} else {
		updated.AssignedShopID = ""
	}

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.UserAccount{}, err
	}

	s.audit(ctx, "user_update", "user", saved.Username, saved.Role)
	result := *saved
	result.Password = ""
	return result, nil
}

// Authenticate verifies credentials against the stored bcrypt hash and
// returns the account on success. The caller issues the token.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return domain.UserAccount{}, fmt.Errorf("%w: username and password required", store.ErrValidation)
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if !user.Active {
		return domain.UserAccount{}, store.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.UserAccount{}, store.ErrNotFound
	}

	result := *user
	result.Password = ""
	return result, nil
}
