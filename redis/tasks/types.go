package tasks

const (
	TypeScrapeProduct = "scrape:product_images"
	TypeHealthCheck   = "health:check"
)

const (
	PriorityLow      = "low"
	PriorityDefault  = "default"
	PriorityCritical = "critical"
)

// ScrapePayload names the job a worker should run. JobID may be empty when
// nobody tracks the job.
type ScrapePayload struct {
	JobID string `json:"job_id,omitempty"`
	URL   string `json:"url"`
}
