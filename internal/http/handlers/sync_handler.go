package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"textilepro/internal/catalogsync"
	applog "textilepro/internal/log"
)

const maxStatusLimit = 100

// SyncController is the job control surface of catalogsync.Manager.
type SyncController interface {
	Start(ctx context.Context) (string, error)
	ForceRestart(ctx context.Context) (string, []string, error)
	Status(ctx context.Context, limit int) (catalogsync.StatusReport, error)
}

type SyncHandler struct {
	Sync SyncController
}

func (h *SyncHandler) report(c *fiber.Ctx) (catalogsync.StatusReport, error) {
	limit := c.QueryInt("limit", catalogsync.DefaultStatusLimit)
	if limit < 1 {
		limit = catalogsync.DefaultStatusLimit
	}
	if limit > maxStatusLimit {
		limit = maxStatusLimit
	}
	return h.Sync.Status(c.UserContext(), limit)
}

// GET /admin/sync
func (h *SyncHandler) Page(c *fiber.Ctx) error {
	if h.Sync == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Synchronisation non configurée")
	}
	rep, err := h.report(c)
	if err != nil {
		applog.Error(c, "admin.sync.status.fail", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Impossible de charger les synchronisations")
	}
	return render(c, "admin_sync", fiber.Map{"Report": rep, "Notice": c.Query("notice")})
}

// GET /admin/sync/status
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	if h.Sync == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "catalog sync not configured")
	}
	rep, err := h.report(c)
	if err != nil {
		applog.Error(c, "admin.sync.status.fail", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load sync jobs")
	}
	return c.JSON(rep)
}

// POST /admin/sync/start
func (h *SyncHandler) Start(c *fiber.Ctx) error {
	if h.Sync == nil {
		return fail(c, fiber.StatusServiceUnavailable, "catalog sync not configured")
	}
	id, err := h.Sync.Start(c.UserContext())
	if errors.Is(err, catalogsync.ErrSyncInProgress) {
		applog.Info(c, "admin.sync.start.conflict", map[string]any{"job_id": id})
		if !wantsJSON(c) {
			return c.Redirect("/admin/sync?notice=in_progress")
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "job_id": id})
	}
	if err != nil {
		applog.Error(c, "admin.sync.start.fail", err, nil)
		return fail(c, fiber.StatusInternalServerError, "could not start the sync")
	}
	applog.Audit(c, "admin.sync.start", map[string]any{"job_id": id})
	if !wantsJSON(c) {
		return c.Redirect("/admin/sync?notice=started")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": id, "status": "started"})
}

// POST /admin/sync/force-restart
func (h *SyncHandler) ForceRestart(c *fiber.Ctx) error {
	if h.Sync == nil {
		return fail(c, fiber.StatusServiceUnavailable, "catalog sync not configured")
	}
	id, expired, err := h.Sync.ForceRestart(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.sync.force_restart.fail", err, map[string]any{"expired": expired})
		return fail(c, fiber.StatusInternalServerError, "could not restart the sync")
	}
	if expired == nil {
		expired = []string{}
	}
	applog.Audit(c, "admin.sync.force_restart", map[string]any{"job_id": id, "expired": expired})
	if !wantsJSON(c) {
		return c.Redirect("/admin/sync?notice=restarted")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": id, "status": "started", "expired": expired})
}
