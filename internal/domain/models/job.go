package models

import (
	"fmt"

	"github.com/nicefood/prodtrack/internal/repository"
)

// Period job operations.
const (
	JobCreatePeriod = "create_period"
	JobDeletePeriod = "delete_period"
)

// Period job states.
const (
	JobRunning   = "running"
	JobPartial   = "partial"
	JobCompleted = "completed"
)

// PeriodJob is the persisted cursor of a bulk period operation. Completed holds
// the "<section>/<kind>" units already done.
type PeriodJob struct {
	ID            string   `json:"id,omitempty" bson:"-"`
	Op            string   `json:"op" bson:"op"`
	PeriodKey     string   `json:"period_key" bson:"period_key"`
	PeriodDisplay string   `json:"period_display" bson:"period_display"`
	Sections      []string `json:"sections" bson:"sections"`
	Completed     []string `json:"completed" bson:"completed"`
	Status        string   `json:"status" bson:"status"`
	StartedAt     string   `json:"started_at" bson:"started_at"`
	UpdatedAt     string   `json:"updated_at" bson:"updated_at"`
}

// UnitKey names one (section, kind) unit of a period job.
func UnitKey(section string, kind Kind) string {
	return fmt.Sprintf("%s/%s", section, kind)
}

// IsDone reports whether unit was already completed.
func (j PeriodJob) IsDone(unit string) bool {
	for _, u := range j.Completed {
		if u == unit {
			return true
		}
	}
	return false
}

// DecodePeriodJob maps a stored document to a PeriodJob.
func DecodePeriodJob(doc repository.Document) (PeriodJob, error) {
	var j PeriodJob
	if err := decode(doc.Data, &j); err != nil {
		return PeriodJob{}, fmt.Errorf("period job %s: %w", doc.ID, err)
	}
	j.ID = doc.ID
	return j, nil
}
