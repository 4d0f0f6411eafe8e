package entities

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOtherJobRunning = errors.New("other job is running")
	ErrJobNotFound     = errors.New("job not found")
)

const (
	JobStatusCreated = "created"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
	JobStatusStopped = "stopped"
)

// StrategyNone is reported when no strategy produced accepted candidates.
const StrategyNone = "None"

// NoteAllFailed is the note attached to an exhausted cascade.
const NoteAllFailed = "All agents failed."

// Error codes of the process boundary and the HTTP API.
const (
	CodeMissingArgument = "MISSING_ARGUMENT"
	CodeInvalidURL      = "INVALID_URL"
	CodeScraperCrash    = "SCRAPER_CRASH"
	CodeScraperTimeout  = "SCRAPER_TIMEOUT"
	CodeScraperFailed   = "SCRAPER_FAILED"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeNotFound        = "NOT_FOUND"
)

// Candidate is a single image URL proposed by a strategy.
type Candidate struct {
	URL    string
	Score  float64
	Source string
}

// PageContext is a read-only snapshot of the loaded page.
type PageContext struct {
	Title       string
	HeadingText string
	PageURL     string
}

// StrategyResult is what one strategy returns for one page.
type StrategyResult struct {
	Candidates []Candidate
	Label      string
	Note       string
}

// URLs returns the candidate urls in order.
func (r StrategyResult) URLs() []string {
	ans := make([]string, 0, len(r.Candidates))
	for i := range r.Candidates {
		ans = append(ans, r.Candidates[i].URL)
	}

	return ans
}

// Outcome is the accepted result of a cascade run.
type Outcome struct {
	StrategyUsed string
	Images       []string
	Note         string
}

// Result is the record written for every scraped page.
type Result struct {
	SourceURL     string   `json:"source_url"`
	StrategyUsed  string   `json:"strategy_used"`
	TotalImages   int      `json:"total_images"`
	ProductImages []string `json:"product_images"`
	Note          string   `json:"note"`
}

// NewResult builds a Result, ensuring product_images is never null.
func NewResult(sourceURL string, o Outcome) Result {
	images := o.Images
	if images == nil {
		images = []string{}
	}

	return Result{
		SourceURL:     sourceURL,
		StrategyUsed:  o.StrategyUsed,
		TotalImages:   len(images),
		ProductImages: images,
		Note:          o.Note,
	}
}

// ErrorRecord is emitted instead of a Result on fatal failures.
type ErrorRecord struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type Job struct {
	ID         string
	URL        string
	Debug      bool
	CreatedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Result     *Result
	Error      string
}

// Scraper scrapes a single product url end to end.
type Scraper interface {
	Scrape(ctx context.Context, url string) (Result, error)
}

type Worker interface {
	Start(ctx context.Context) error
	ScheduleJob(ctx context.Context, job Job) error
}

type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	SetJobStatus(ctx context.Context, id string, status string) error
	SetJobResult(ctx context.Context, id string, result Result) error
	SetJobError(ctx context.Context, id string, msg string) error
	SelectAllJobs(ctx context.Context) ([]Job, error)
}
