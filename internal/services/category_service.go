package services

import (
	"context"
	"errors"

	"vouche/internal/models"
	"vouche/internal/repositories"
)

// CategoryService handles business logic related to categories.
type CategoryService struct {
	repo repositories.CategoryRepository
}

func NewCategoryService(repo repositories.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return categories, nil
}

func (s *CategoryService) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get category", err)
	}
	return category, nil
}

// CreateCategory creates a category. Names are unique.
func (s *CategoryService) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := s.repo.Create(ctx, category); err != nil {
		return writeErr("create category", err)
	}
	return nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, category *models.Category) error {
	if err := s.repo.Update(ctx, category); err != nil {
		return writeErr("update category", err)
	}
	return nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr("delete category", err)
	}
	return nil
}

// writeErr keeps not-found and duplicate errors as they are.
func writeErr(op string, err error) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return err
	}
	return lookupErr(op, err)
}
