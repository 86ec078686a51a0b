// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/campushub/internal/app/store/audit"
	"github.com/dalemusser/campushub/internal/app/system/paging"
)

type eventItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorUID      string            `json:"actor_uid,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events []eventItem `json:"events"`
	Paging paging.Info `json:"paging"`
}

func toItem(e audit.Event) eventItem {
	return eventItem{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		ActorUID:      e.ActorUID,
		SubjectID:     e.SubjectID,
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
}
