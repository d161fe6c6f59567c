package buildlog

import (
	"fmt"
	"time"
)

// StageReport is what a linter or converter reported for one job.
type StageReport struct {
	Identifier string
	Success    bool
	Info       []string
	Warnings   []string
	Errors     []string
}

// NewLintLog builds the lint stage log. A failed lint is recorded as a
// warning, not an error, so that conversion output is still published.
func NewLintLog(r StageReport) *BuildLog {
	b := &BuildLog{
		Identifier:       r.Identifier,
		Success:          Bool(r.Success),
		MultipartProject: isMultipart(r.Identifier),
		Log:              append([]string{}, r.Info...),
		Warnings:         append([]string{}, r.Warnings...),
		Errors:           append([]string{}, r.Errors...),
	}
	if !r.Success {
		b.Warnings = append(b.Warnings, "Linter failed for identifier: "+r.Identifier)
	}
	if len(b.Warnings) > 0 {
		b.Log = append(b.Log, fmt.Sprintf("Linter %s has Warnings!", r.Identifier))
	} else {
		b.Log = append(b.Log, fmt.Sprintf("Linter %s completed with no warnings", r.Identifier))
	}
	return b
}

// ConvertJob identifies the conversion a convert log describes.
type ConvertJob struct {
	JobID         string
	ConvertModule string
	StartedAt     time.Time
}

// NewConvertLog builds the convert stage log, deriving status and message
// from the reported success and lists. endedAt is stamped as EndedAt.
func NewConvertLog(job ConvertJob, r StageReport, endedAt time.Time) *BuildLog {
	b := &BuildLog{
		Identifier: r.Identifier,
		Log:        append([]string{}, r.Info...),
		Warnings:   append([]string{}, r.Warnings...),
		Errors:     append([]string{}, r.Errors...),
	}
	if !job.StartedAt.IsZero() {
		b.StartedAt = job.StartedAt.UTC().Format(TimeFormat)
	}
	b.Stamp(endedAt)

	switch {
	case len(b.Errors) > 0:
		b.Log = append(b.Log, job.ConvertModule+" function returned with errors.")
	case len(b.Warnings) > 0:
		b.Log = append(b.Log, job.ConvertModule+" function returned with warnings.")
	default:
		b.Log = append(b.Log, job.ConvertModule+" function returned successfully.")
	}

	switch {
	case !r.Success || len(b.Errors) > 0:
		b.Success = Bool(false)
		b.Status = StatusFailed
		b.Message = "Conversion failed"
	case len(b.Warnings) > 0:
		b.Success = Bool(true)
		b.Status = StatusWarnings
		b.Message = "Conversion successful with warnings."
	default:
		b.Success = Bool(true)
		b.Status = StatusSuccess
		b.Message = "Conversion successful."
	}
	b.Log = append(b.Log, b.Message)
	b.Log = append(b.Log, fmt.Sprintf("Finished job %s at %s", job.JobID, b.EndedAt))
	return b
}

func isMultipart(identifier string) bool {
	id, err := ParseIdentifier(identifier)
	return err == nil && id.Multipart
}
