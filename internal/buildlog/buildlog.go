// Package buildlog models the per-stage and final build logs that travel
// through the object store, and the rules for merging them.
package buildlog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/unfoldingWord/door43-job-handler/internal/schema"
)

// TimeFormat is the UTC timestamp layout used in every log.
const TimeFormat = "2006-01-02T15:04:05Z"

// Status values.
const (
	StatusSuccess  = "success"
	StatusWarnings = "warnings"
	StatusErrors   = "errors"
	StatusFailed   = "failed"
)

// BuildLog is the JSON object persisted as lint_log.json, convert_log.json,
// merged.json, build_log.json and final_build_log.json.
type BuildLog struct {
	Identifier       string   `json:"identifier,omitempty"`
	Success          *bool    `json:"success,omitempty"`
	MultipartProject bool     `json:"multipart_project,omitempty"`
	Multiple         bool     `json:"multiple,omitempty"`
	Message          string   `json:"message,omitempty"`
	Status           string   `json:"status,omitempty"`
	S3CommitKey      string   `json:"s3_commit_key,omitempty"`
	Log              []string `json:"log"`
	Warnings         []string `json:"warnings"`
	Errors           []string `json:"errors"`
	StartedAt        string   `json:"started_at,omitempty"`
	EndedAt          string   `json:"ended_at,omitempty"`

	JobID             string `json:"job_id,omitempty"`
	RepoOwnerUsername string `json:"repo_owner_username,omitempty"`
	RepoName          string `json:"repo_name,omitempty"`
	CommitID          string `json:"commit_id,omitempty"`
	CommitType        string `json:"commit_type,omitempty"`
	CommitHash        string `json:"commit_hash,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	ResourceType      string `json:"resource_type,omitempty"`
	OutputFormat      string `json:"output_format,omitempty"`
}

// Bool returns a pointer to b, for Success.
func Bool(b bool) *bool { return &b }

// Succeeded reports whether Success is set and true.
func (b *BuildLog) Succeeded() bool {
	return b != nil && b.Success != nil && *b.Success
}

// IsEmpty reports whether the log carries no data at all.
func (b *BuildLog) IsEmpty() bool {
	if b == nil {
		return true
	}
	return reflect.ValueOf(*b.Clone()).IsZero()
}

// Clone returns a deep copy.
func (b *BuildLog) Clone() *BuildLog {
	if b == nil {
		return nil
	}
	c := *b
	if b.Success != nil {
		c.Success = Bool(*b.Success)
	}
	c.Log = append([]string(nil), b.Log...)
	c.Warnings = append([]string(nil), b.Warnings...)
	c.Errors = append([]string(nil), b.Errors...)
	return &c
}

// CommitPrefix returns the storage prefix u/{owner}/{repo}/{commit}.
func (b *BuildLog) CommitPrefix() string {
	return fmt.Sprintf("u/%s/%s/%s", b.RepoOwnerUsername, b.RepoName, b.CommitID)
}

// RepoPrefix returns the storage prefix u/{owner}/{repo}.
func (b *BuildLog) RepoPrefix() string {
	return fmt.Sprintf("u/%s/%s", b.RepoOwnerUsername, b.RepoName)
}

// Merge folds next into prev and returns the result. An empty prev yields
// a copy of next. Message and the list fields are concatenated. When
// converter is set and next explicitly failed, the result fails too.
// Neither argument is modified.
func Merge(prev, next *BuildLog, converter bool) *BuildLog {
	if prev.IsEmpty() {
		return next.Clone()
	}
	out := prev.Clone()
	if next == nil {
		return out
	}
	out.Message += next.Message
	out.Log = append(out.Log, next.Log...)
	out.Warnings = append(out.Warnings, next.Warnings...)
	out.Errors = append(out.Errors, next.Errors...)
	if converter && next.Success != nil && !*next.Success {
		out.Success = Bool(false)
	}
	return out
}

// FinalizeStatus derives the overall status from the accumulated lists.
// Errors are prepended to the warnings so they show on the project page,
// and a warning total is appended whenever warnings exist.
func (b *BuildLog) FinalizeStatus() {
	switch {
	case len(b.Errors) > 0:
		if len(b.Warnings) > 0 {
			b.Warnings = append(append([]string(nil), b.Errors...), b.Warnings...)
		}
		b.Status = StatusErrors
	case len(b.Warnings) > 0:
		b.Status = StatusWarnings
	default:
		b.Status = StatusSuccess
	}
	if len(b.Warnings) > 0 {
		b.Warnings = append(b.Warnings, fmt.Sprintf("%s total preprocessor and linter warnings", thousands(len(b.Warnings))))
	}
}

// Stamp sets EndedAt to t in TimeFormat.
func (b *BuildLog) Stamp(t time.Time) {
	b.EndedAt = t.UTC().Format(TimeFormat)
}

// Validate checks the log against the build_log schema.
func (b *BuildLog) Validate() error {
	return schema.ValidateValue(schema.BuildLog, b)
}

// Parse decodes and validates a build log.
func Parse(data []byte) (*BuildLog, error) {
	if err := schema.Validate(schema.BuildLog, data); err != nil {
		return nil, err
	}
	var b BuildLog
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode build log: %w", err)
	}
	return &b, nil
}

// Identifier is a parsed job identifier. A single-part identifier is just
// a job id; a multi-part one is job_id/part_count/part_id/book.
type Identifier struct {
	JobID     string
	Multipart bool
	PartCount int
	PartID    string
	Book      string
}

// ParseIdentifier splits id. Having more than three slash-separated parts
// is what makes an identifier multi-part.
func ParseIdentifier(id string) (Identifier, error) {
	parts := strings.Split(id, "/")
	if len(parts) <= 3 {
		return Identifier{JobID: id}, nil
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil || count < 1 {
		return Identifier{}, fmt.Errorf("invalid part count in identifier %q", id)
	}
	return Identifier{
		JobID:     parts[0],
		Multipart: true,
		PartCount: count,
		PartID:    parts[2],
		Book:      parts[3],
	}, nil
}

var printer = message.NewPrinter(language.English)

func thousands(n int) string {
	return printer.Sprintf("%d", n)
}
