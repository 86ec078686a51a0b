// internal/app/features/locations/handler.go
package locations

import (
	"math"
	"net/http"
	"strconv"

	locationstore "github.com/dalemusser/campushub/internal/app/store/locations"
	"github.com/dalemusser/campushub/internal/app/system/auditlog"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// Handler serves the campus map's location endpoints.
type Handler struct {
	Locations *locationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler constructs a locations Handler. audit may be nil.
func NewHandler(store *locationstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Locations: store,
		Audit:     audit,
		Log:       logger,
	}
}

// floatParam reads a required finite float query parameter.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := query.Get(r, name)
	if raw == "" {
		return 0, httpjson.BadParam(name, raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, httpjson.BadParam(name, raw)
	}
	return v, nil
}
