package release

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"release-builder/core/storage"
	"release-builder/feature/release/identifier"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the release feature over the configured storage and
// identifier service.
func NewFeature(client storage.Client, storageCfg storage.Config, idCfg identifier.Config, cfg Config, releaseCenter string, logger *zap.Logger) *Feature {
	dao := storage.NewReleaseDAO(client, storageCfg)
	svc := NewService(dao, identifier.NewHTTPClient(idCfg), idCfg, cfg, releaseCenter, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "release"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
