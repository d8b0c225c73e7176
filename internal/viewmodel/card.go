package viewmodel

import (
	"github.com/BadgerOps/transferwatch/internal/model"
)

// JobCard is the derived, render-ready view of one transfer.
type JobCard struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Badge         string `json:"badge"`
	Tone          Tone   `json:"tone"`
	Active        bool   `json:"active"`
	Historical    bool   `json:"historical"`
	Size          string `json:"size"`
	Folder        bool   `json:"folder"`
	FileCount     *int   `json:"file_count,omitempty"`
	Watch         bool   `json:"watch"`
	WatchDuration string `json:"watch_duration,omitempty"`
	WatchAnomaly  bool   `json:"watch_anomaly,omitempty"`
	Progress      int    `json:"progress"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	Error         string `json:"error,omitempty"`
}

// Card builds the JobCard for j.
func Card(j model.TransferJob) JobCard {
	c := JobCard{
		ID:          j.ID,
		Title:       j.FileName,
		Badge:       upper(StatusLabel(j)),
		Tone:        StatusTone(j.Status),
		Active:      IsActive(j.Status),
		Historical:  IsHistorical(j.Status),
		Size:        FormatBytes(j.FileSize),
		Folder:      j.IsFolderTransfer,
		FileCount:   j.FileCount,
		Watch:       j.WatchModeEnabled,
		Progress:    j.ProgressPercent,
		Source:      j.SourcePath,
		Destination: j.DestinationPath,
		Error:       j.ErrorMessage,
	}
	if j.WatchStartedAt != nil && j.WatchTriggeredAt != nil {
		c.WatchDuration, c.WatchAnomaly = WatchDuration(*j.WatchStartedAt, *j.WatchTriggeredAt)
	}
	return c
}

// Cards maps Card over jobs.
func Cards(jobs []model.TransferJob) []JobCard {
	out := make([]JobCard, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, Card(j))
	}
	return out
}
