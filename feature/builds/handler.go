package builds

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"release-builder/core/logger"
	"release-builder/feature/builds/models"
)

// Handler handles HTTP requests for products and builds.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the product and build routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	products := app.Group("/products")
	products.Post("/", h.HandleCreateProduct)
	products.Get("/", h.HandleListProducts)
	products.Post("/:productKey/builds", h.HandleCreateBuild)
	products.Get("/:productKey/builds", h.HandleListBuilds)

	builds := app.Group("/builds")
	builds.Get("/:id", h.HandleGetBuild)
	builds.Put("/:id/status", h.HandleUpdateStatus)
	builds.Post("/:id/cancel", h.HandleRequestCancel)
}

// HandleCreateProduct registers a new product.
// @Summary Create Product
// @Tags builds
// @Accept json
// @Produce json
// @Param product body models.Product true "Product"
// @Success 201 {object} models.Product "Created"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /products [post]
func (h *Handler) HandleCreateProduct(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, err)
	}
	if err := h.service.CreateProduct(c.Context(), &product); err != nil {
		l.Error("Product creation failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleListProducts returns every registered product.
// @Summary List Products
// @Tags builds
// @Produce json
// @Success 200 {array} models.Product "Products"
// @Router /products [get]
func (h *Handler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(products)
}

// HandleCreateBuild registers a new build under a product.
// @Summary Create Build
// @Tags builds
// @Accept json
// @Produce json
// @Param productKey path string true "Product Key"
// @Param build body models.Build true "Build"
// @Success 201 {object} models.Build "Created"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /products/{productKey}/builds [post]
func (h *Handler) HandleCreateBuild(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	var build models.Build
	if err := c.BodyParser(&build); err != nil {
		return badRequest(c, err)
	}
	if err := h.service.CreateBuild(c.Context(), c.Params("productKey"), &build); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, err)
		}
		l.Error("Build creation failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(build)
}

// HandleListBuilds returns a product's builds, newest first.
// @Summary List Builds
// @Tags builds
// @Produce json
// @Param productKey path string true "Product Key"
// @Success 200 {array} models.Build "Builds"
// @Router /products/{productKey}/builds [get]
func (h *Handler) HandleListBuilds(c *fiber.Ctx) error {
	builds, err := h.service.ListBuilds(c.Context(), c.Params("productKey"))
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(builds)
}

// HandleGetBuild returns one build.
// @Summary Get Build
// @Tags builds
// @Produce json
// @Param id path int true "Build ID"
// @Success 200 {object} models.Build "Build"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /builds/{id} [get]
func (h *Handler) HandleGetBuild(c *fiber.Ctx) error {
	id, err := buildID(c)
	if err != nil {
		return badRequest(c, err)
	}
	build, err := h.service.GetBuild(c.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, err)
		}
		return internalError(c, err)
	}
	return c.JSON(build)
}

// HandleUpdateStatus moves a build to a new lifecycle state.
// @Summary Update Build Status
// @Tags builds
// @Accept json
// @Produce json
// @Param id path int true "Build ID"
// @Success 200 {object} map[string]string "Updated"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /builds/{id}/status [put]
func (h *Handler) HandleUpdateStatus(c *fiber.Ctx) error {
	id, err := buildID(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req struct {
		Status         models.BuildStatus `json:"status"`
		FailureMessage string             `json:"failure_message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := h.service.UpdateStatus(c.Context(), id, req.Status, req.FailureMessage); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, err)
		}
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"status": string(req.Status)})
}

// HandleRequestCancel flags a build for cancellation.
// @Summary Cancel Build
// @Tags builds
// @Produce json
// @Param id path int true "Build ID"
// @Success 202 {object} map[string]string "Accepted"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /builds/{id}/cancel [post]
func (h *Handler) HandleRequestCancel(c *fiber.Ctx) error {
	id, err := buildID(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.RequestCancel(c.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, err)
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "cancelling"})
}

func buildID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func notFound(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
