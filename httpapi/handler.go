// Package httpapi exposes recomputation and snapshot reads over HTTP.
package httpapi

import (
	"context"
	"errors"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/logger/api"
	"github.com/bignyap/studio-storage/server"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is the nginx convention for a caller that
// disconnected before the response was ready.
const statusClientClosedRequest = 499

// Recomputer is the slice of *accounting.Accountant the handlers need.
type Recomputer interface {
	Recompute(ctx context.Context, slug string) (accounting.Report, error)
	WithTimeout(ctx context.Context) (context.Context, context.CancelFunc)
}

// Handler registers the storage routes on a server.
type Handler struct {
	acct      Recomputer
	tenants   accounting.TenantDirectory
	snapshots accounting.SnapshotReader
	log       api.Logger
}

var _ server.Handler = (*Handler)(nil)

func NewHandler(acct Recomputer, tenants accounting.TenantDirectory, snapshots accounting.SnapshotReader, log api.Logger) *Handler {
	return &Handler{
		acct:      acct,
		tenants:   tenants,
		snapshots: snapshots,
		log:       api.OrDefault(log).WithComponent("httpapi"),
	}
}

func (h *Handler) Setup(s server.Server) error {
	rw := s.GetResponseWriter()
	r := s.Router()

	r.GET("/healthz", func(c *gin.Context) {
		rw.Success(c, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1/tenants/:slug/storage")
	v1.GET("", h.show(rw))
	v1.POST("/recompute", h.recompute(rw))
	return nil
}

func (h *Handler) Shutdown() error { return nil }

// Usage adds human-readable figures to a snapshot.
type Usage struct {
	accounting.Snapshot
	Slug        string  `json:"slug"`
	TotalHuman  string  `json:"totalHuman"`
	QuotaHuman  string  `json:"quotaHuman"`
	UsedPercent float64 `json:"usedPercent"`
}

// RecomputeResponse is the body of a successful recompute.
type RecomputeResponse struct {
	Usage
	Degraded  int `json:"degraded"`
	Untracked int `json:"untracked"`
}

func newUsage(slug string, snap accounting.Snapshot) Usage {
	u := Usage{
		Snapshot:   snap,
		Slug:       slug,
		TotalHuman: humanize.IBytes(uint64(max(snap.TotalBytes, 0))),
		QuotaHuman: humanize.IBytes(uint64(max(snap.QuotaLimitBytes, 0))),
	}
	if snap.QuotaLimitBytes > 0 {
		u.UsedPercent = float64(snap.TotalBytes) * 100 / float64(snap.QuotaLimitBytes)
	}
	return u
}

func (h *Handler) recompute(rw *server.ResponseWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		ctx, cancel := h.acct.WithTimeout(c.Request.Context())
		defer cancel()

		r, err := h.acct.Recompute(ctx, slug)
		if err != nil {
			h.fail(c, rw, err)
			return
		}

		rw.Success(c, RecomputeResponse{
			Usage: newUsage(r.Slug, accounting.Snapshot{
				TenantID:         r.TenantID,
				TotalBytes:       r.TotalBytes,
				PerKindBytes:     r.PerKindBytes,
				Sections:         r.Sections,
				QuotaLimitBytes:  r.QuotaLimitBytes,
				LastCalculatedAt: r.LastCalculatedAt,
			}),
			Degraded:  r.Degraded,
			Untracked: r.Untracked,
		})
	}
}

func (h *Handler) show(rw *server.ResponseWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		ctx := c.Request.Context()

		tenantID, err := h.tenants.Resolve(ctx, slug)
		if err != nil {
			h.fail(c, rw, err)
			return
		}
		snap, err := h.snapshots.Get(ctx, tenantID)
		if err != nil {
			h.fail(c, rw, err)
			return
		}
		rw.Success(c, newUsage(slug, snap))
	}
}

func (h *Handler) fail(c *gin.Context, rw *server.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounting.ErrTenantNotFound):
		rw.Error(c, server.NewError(server.ErrorNotFound, "tenant not found", err))
	case errors.Is(err, accounting.ErrSnapshotNotFound):
		rw.Error(c, server.NewError(server.ErrorNotFound, "storage usage not calculated yet", err))
	case errors.Is(err, context.Canceled):
		h.log.Info(c.Request.Context(), "client went away before recompute finished",
			api.String("slug", c.Param("slug")))
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(c, server.NewError(server.ErrorTimeout, "recompute timed out", err))
	default:
		rw.InternalServerError(c, err)
	}
}

