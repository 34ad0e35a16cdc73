package services

import (
	"context"
	"errors"
	"strings"

	"vouche/internal/models"
	"vouche/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo         repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, categoryRepo repositories.CategoryRepository) *ProductService {
	return &ProductService{
		repo:         repo,
		categoryRepo: categoryRepo,
	}
}

// GetAllProducts retrieves all products with their derived stock.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list products", err)
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get product", err)
	}
	return product, nil
}

// CreateProduct creates a new product. Its stock starts at zero until codes are loaded.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.validate(ctx, product); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return storageErr("create product", err)
	}
	return nil
}

// UpdateProduct updates the catalog fields of an existing product. Stock is not writable.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.validate(ctx, product); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return lookupErr("update product", err)
	}
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr("delete product", err)
	}
	return nil
}

func (s *ProductService) validate(ctx context.Context, product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if len(product.Name) < 3 {
		return validationErr("name", "must be at least 3 characters")
	}
	if !product.Price.IsPositive() {
		return validationErr("price", "must be greater than 0")
	}
	if product.CategoryID == nil || *product.CategoryID == "" {
		product.CategoryID = nil
		return nil
	}
	if _, err := s.categoryRepo.GetByID(ctx, *product.CategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validationErr("category_id", "unknown category %s", *product.CategoryID)
		}
		return storageErr("load category", err)
	}
	return nil
}
