package release

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"release-builder/core/logger"
)

// Handler handles HTTP requests for release file generation.
type Handler struct {
	service *Service

	mu     sync.Mutex
	active map[string]*Build
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, active: make(map[string]*Build)}
}

// RegisterRoutes registers the release routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/release")
	group.Post("/:buildID/transform", h.HandleTransform)
	group.Post("/:buildID/export", h.HandleExport)
	group.Post("/:buildID/cancel", h.HandleCancel)
}

// HandleTransform runs the transformation phase for a build.
// @Summary Transform Build Files
// @Description Rewrite a build's authored input files into release-ready form.
// @Tags release
// @Accept json
// @Produce json
// @Param buildID path string true "Build ID"
// @Param build body Build true "Build context"
// @Success 200 {object} map[string]string "Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /release/{buildID}/transform [post]
func (h *Handler) HandleTransform(c *fiber.Ctx) error {
	return h.runPhase(c, "transform", h.service.TransformFiles)
}

// HandleExport runs the export phase for a build, producing the Delta,
// Full and Snapshot files in the build's output area.
// @Summary Export Release Files
// @Description Generate Delta, Full and Snapshot release files for a build.
// @Tags release
// @Accept json
// @Produce json
// @Param buildID path string true "Build ID"
// @Param build body Build true "Build context"
// @Success 200 {object} map[string]string "Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /release/{buildID}/export [post]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	return h.runPhase(c, "export", h.service.GenerateReleaseFiles)
}

// HandleCancel flags a running build phase for cancellation. The phase
// stops before its next file or identifier retry.
// @Summary Cancel Build
// @Description Request cancellation of a running build phase.
// @Tags release
// @Produce json
// @Param buildID path string true "Build ID"
// @Success 202 {object} map[string]string "Accepted"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /release/{buildID}/cancel [post]
func (h *Handler) HandleCancel(c *fiber.Ctx) error {
	buildID := c.Params("buildID")
	h.mu.Lock()
	build, ok := h.active[buildID]
	h.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no running phase for build " + buildID,
		})
	}
	build.Cancel()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"build_id": buildID,
		"status":   "cancelling",
	})
}

func (h *Handler) runPhase(c *fiber.Ctx, phase string, run func(ctx context.Context, build *Build) error) error {
	buildID := c.Params("buildID")
	l := logger.WithRayID(h.service.logger, c)

	build := new(Build)
	if err := c.BodyParser(build); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	build.ID = buildID

	if !h.track(build) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a phase is already running for build " + buildID,
		})
	}
	defer h.untrack(buildID)

	if err := run(c.Context(), build); err != nil {
		l.Error("Release phase failed",
			zap.String("build_id", buildID),
			zap.String("phase", phase),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	l.Info("Release phase completed",
		zap.String("build_id", buildID),
		zap.String("phase", phase))
	return c.JSON(fiber.Map{
		"build_id": buildID,
		"phase":    phase,
		"status":   "completed",
	})
}

func (h *Handler) track(build *Build) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, running := h.active[build.ID]; running {
		return false
	}
	h.active[build.ID] = build
	return true
}

func (h *Handler) untrack(buildID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, buildID)
}
