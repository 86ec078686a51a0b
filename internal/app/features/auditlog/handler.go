// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/campushub/internal/app/store/audit"
	"go.uber.org/zap"
)

// Handler serves the admin audit trail.
type Handler struct {
	Events *audit.Store
	Log    *zap.Logger
}

func NewHandler(store *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Events: store,
		Log:    logger,
	}
}
