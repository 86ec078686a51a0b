// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/campushub/internal/app/store/audit"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// IsMode reports whether m is a known destination.
func IsMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Catalog controls logging for location and event changes.
	Catalog string
	// Accounts controls logging for profile changes and role grants.
	Accounts string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.ActorUID != "" {
		fields = append(fields, zap.String("actor_uid", event.ActorUID))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op, so handlers can run without auditing in tests.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryCatalog:
		setting = l.config.Catalog
	case audit.CategoryAccounts:
		setting = l.config.Accounts
	default:
		setting = ModeAll
	}

	if setting == ModeOff {
		return
	}
	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if setting == ModeAll || setting == ModeDB {
		// The request may be finishing; the record should still land.
		if err := l.store.Log(context.WithoutCancel(ctx), event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) record(ctx context.Context, r *http.Request, category, eventType, actor, subject string, details map[string]string) {
	if l == nil {
		return
	}
	l.Log(ctx, audit.Event{
		Category:  category,
		EventType: eventType,
		ActorUID:  actor,
		SubjectID: subject,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// --- Catalog Events ---

// LocationCreated logs a new location.
func (l *Logger) LocationCreated(ctx context.Context, r *http.Request, actor string, loc models.Location) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventLocationCreated, actor, loc.ID.Hex(), map[string]string{
		"name": loc.Name,
		"type": loc.Type,
	})
}

// LocationUpdated logs an edited location.
func (l *Logger) LocationUpdated(ctx context.Context, r *http.Request, actor string, loc models.Location) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventLocationUpdated, actor, loc.ID.Hex(), map[string]string{
		"name": loc.Name,
	})
}

// LocationDeleted logs a removed location.
func (l *Logger) LocationDeleted(ctx context.Context, r *http.Request, actor, id string) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventLocationDeleted, actor, id, nil)
}

// EventCreated logs a new event.
func (l *Logger) EventCreated(ctx context.Context, r *http.Request, actor string, ev models.Event) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventEventCreated, actor, ev.ID.Hex(), map[string]string{
		"title":    ev.Title,
		"status":   ev.Status,
		"capacity": strconv.Itoa(ev.Capacity),
	})
}

// EventUpdated logs an edited event.
func (l *Logger) EventUpdated(ctx context.Context, r *http.Request, actor string, ev models.Event) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventEventUpdated, actor, ev.ID.Hex(), map[string]string{
		"capacity": strconv.Itoa(ev.Capacity),
		"version":  strconv.FormatInt(ev.Version, 10),
	})
}

// EventPublished logs a draft going live.
func (l *Logger) EventPublished(ctx context.Context, r *http.Request, actor string, ev models.Event) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventEventPublished, actor, ev.ID.Hex(), nil)
}

// EventCancelled logs a cancellation.
func (l *Logger) EventCancelled(ctx context.Context, r *http.Request, actor string, ev models.Event) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventEventCancelled, actor, ev.ID.Hex(), map[string]string{
		"attendees": strconv.Itoa(len(ev.Attendees)),
	})
}

// EventDeleted logs a removed event.
func (l *Logger) EventDeleted(ctx context.Context, r *http.Request, actor, id string) {
	l.record(ctx, r, audit.CategoryCatalog, audit.EventEventDeleted, actor, id, nil)
}

// --- Account Events ---

// ProfileCreated logs a new profile.
func (l *Logger) ProfileCreated(ctx context.Context, r *http.Request, actor string, p models.Profile) {
	l.record(ctx, r, audit.CategoryAccounts, audit.EventProfileCreated, actor, p.UID, map[string]string{
		"role": p.Role,
	})
}

// ProfileUpdated logs an edited profile.
func (l *Logger) ProfileUpdated(ctx context.Context, r *http.Request, actor string, p models.Profile) {
	l.record(ctx, r, audit.CategoryAccounts, audit.EventProfileUpdated, actor, p.UID, map[string]string{
		"version": strconv.FormatInt(p.Version, 10),
	})
}

// RoleChanged logs a role grant or removal.
func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actor, uid, from, to string) {
	l.record(ctx, r, audit.CategoryAccounts, audit.EventRoleChanged, actor, uid, map[string]string{
		"old_role": from,
		"new_role": to,
	})
}

// ProfileDeleted logs a removed profile. A deletion whose identity step is
// still pending is logged as a failure with the reason.
func (l *Logger) ProfileDeleted(ctx context.Context, r *http.Request, actor, uid string, pendingErr error) {
	if l == nil {
		return
	}
	ev := audit.Event{
		Category:  audit.CategoryAccounts,
		EventType: audit.EventProfileDeleted,
		ActorUID:  actor,
		SubjectID: uid,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   pendingErr == nil,
	}
	if pendingErr != nil {
		ev.FailureReason = pendingErr.Error()
	}
	l.Log(ctx, ev)
}
