package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loyalty-backend/internal/domains/template/model"
	"loyalty-backend/internal/domains/template/repository"
	"loyalty-backend/internal/infrastructure/cache"
	"loyalty-backend/pkg/logger"
)

const (
	templateListCacheKey = "templates:list"
	templateCacheTTL     = 10 * time.Minute
)

// ServiceInterface là contract của template service
type ServiceInterface interface {
	Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Template, error)
	List(ctx context.Context) ([]model.Template, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateTemplateRequest) (*model.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// templateService quản lý CRUD template với read-through cache trên Redis.
// Template là dữ liệu đọc nhiều ghi ít nên cache list, invalidate khi ghi.
type templateService struct {
	repo  repository.TemplateRepository
	cache *cache.RedisClient
}

func NewTemplateService(repo repository.TemplateRepository, redisCache *cache.RedisClient) ServiceInterface {
	return &templateService{
		repo:  repo,
		cache: redisCache,
	}
}

func (s *templateService) Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error) {
	now := time.Now()
	t := &model.Template{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return t, nil
}

func (s *templateService) GetByID(ctx context.Context, id uuid.UUID) (*model.Template, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *templateService) List(ctx context.Context) ([]model.Template, error) {
	var cached []model.Template
	if hit, err := s.cache.GetJSON(ctx, templateListCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, templateListCacheKey, templates, templateCacheTTL); err != nil {
		// Cache lỗi không chặn response
		logger.Error("failed to cache template list", err)
	}

	return templates, nil
}

func (s *templateService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTemplateRequest) (*model.Template, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.ImageURL != nil {
		t.ImageURL = *req.ImageURL
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return t, nil
}

func (s *templateService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *templateService) invalidateCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, templateListCacheKey); err != nil {
		logger.Error("failed to invalidate template cache", err)
	}
}
