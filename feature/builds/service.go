package builds

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"release-builder/feature/builds/models"
)

// ErrNotFound is returned when a product or build does not exist.
var ErrNotFound = errors.New("not found")

// Service manages products and their builds.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new builds service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateProduct registers a new product.
func (s *Service) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Key == "" {
		return errors.New("product key is required")
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product %s: %w", product.Key, err)
	}
	return nil
}

// ListProducts returns every registered product.
func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("product_key").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// CreateBuild registers a new build for a product, starting in the
// pending state.
func (s *Service) CreateBuild(ctx context.Context, productKey string, build *models.Build) error {
	var product models.Product
	err := s.db.WithContext(ctx).Where("product_key = ?", productKey).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %s: %w", productKey, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find product %s: %w", productKey, err)
	}
	build.ProductID = product.ID
	build.Status = models.StatusPending
	if err := s.db.WithContext(ctx).Create(build).Error; err != nil {
		return fmt.Errorf("create build for %s: %w", productKey, err)
	}
	return nil
}

// ListBuilds returns a product's builds, newest first.
func (s *Service) ListBuilds(ctx context.Context, productKey string) ([]models.Build, error) {
	var builds []models.Build
	err := s.db.WithContext(ctx).
		Joins("JOIN products ON products.id = builds.product_id").
		Where("products.product_key = ?", productKey).
		Order("builds.id DESC").
		Find(&builds).Error
	if err != nil {
		return nil, fmt.Errorf("list builds for %s: %w", productKey, err)
	}
	return builds, nil
}

// GetBuild returns one build by id.
func (s *Service) GetBuild(ctx context.Context, id uint) (*models.Build, error) {
	var build models.Build
	err := s.db.WithContext(ctx).First(&build, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("build %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get build %d: %w", id, err)
	}
	return &build, nil
}

// UpdateStatus moves a build to a new lifecycle state, recording the
// failure message when there is one.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.BuildStatus, failureMessage string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Build{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"failure_message": failureMessage,
		})
	if result.Error != nil {
		return fmt.Errorf("update build %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("build %d: %w", id, ErrNotFound)
	}
	s.logger.Info("Build status updated",
		zap.Uint("build_id", id),
		zap.String("status", string(status)))
	return nil
}

// RequestCancel flags a build for cancellation. The running release phase
// observes the flag and stops; the status moves to cancelled once it has.
func (s *Service) RequestCancel(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&models.Build{}).
		Where("id = ?", id).
		Update("cancel_requested", true)
	if result.Error != nil {
		return fmt.Errorf("request cancel of build %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("build %d: %w", id, ErrNotFound)
	}
	return nil
}
