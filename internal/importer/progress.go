package importer

import (
	"fmt"
	"time"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

// Progress is one run's counters. ProcessedCount counts added titles;
// ErrorCount counts failed years and ItemErrorCount failed titles inside
// otherwise successful years.
type Progress struct {
	RunID            string      `json:"run_id"`
	Kind             models.Kind `json:"kind"`
	StartYear        int         `json:"start_year"`
	EndYear          int         `json:"end_year"`
	CurrentYear      int         `json:"current_year"`
	TotalYears       int         `json:"total_years"`
	YearsDone        int         `json:"years_done"`
	ProcessedCount   int         `json:"processed_count"`
	UpdatedCount     int         `json:"updated_count"`
	UnavailableCount int         `json:"unavailable_count"`
	ErrorCount       int         `json:"error_count"`
	ItemErrorCount   int         `json:"item_error_count"`
	IsRunning        bool        `json:"is_running"`
	LastError        string      `json:"last_error,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	FinishedAt       *time.Time  `json:"finished_at,omitempty"`
}

func (p *Progress) finish(at time.Time, err error) {
	p.IsRunning = false
	p.FinishedAt = &at
	if err != nil {
		p.LastError = err.Error()
	}
}

func (p Progress) String() string {
	return fmt.Sprintf("years=%d/%d added=%d updated=%d unavailable=%d failed_years=%d item_errors=%d",
		p.YearsDone, p.TotalYears, p.ProcessedCount, p.UpdatedCount, p.UnavailableCount,
		p.ErrorCount, p.ItemErrorCount)
}
