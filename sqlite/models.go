package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

type job struct {
	ID         string     `gorm:"column:id;primaryKey"`
	URL        string     `gorm:"column:url;not null;index"`
	Debug      bool       `gorm:"column:debug;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	Status     string     `gorm:"column:status;not null"`
	Error      string     `gorm:"column:error"`
	Result     result     `gorm:"column:result;type:blob"`
}

func (j *job) toEntitiesJob() entities.Job {
	ans := entities.Job{
		ID:         j.ID,
		URL:        j.URL,
		Debug:      j.Debug,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
		Status:     j.Status,
		Error:      j.Error,
	}

	if !j.Result.empty() {
		r := entities.Result(j.Result)
		ans.Result = &r
	}

	return ans
}

func jobFromEntitiesJob(j *entities.Job) job {
	ans := job{
		ID:         j.ID,
		URL:        j.URL,
		Debug:      j.Debug,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
		Status:     j.Status,
		Error:      j.Error,
	}

	if j.Result != nil {
		ans.Result = result(*j.Result)
	}

	return ans
}

// result is stored as a JSON blob; a job without a result stores NULL.
type result entities.Result

func (r result) empty() bool {
	return r.SourceURL == "" && r.StrategyUsed == ""
}

func (r *result) Scan(value interface{}) error {
	var bytes []byte

	switch v := value.(type) {
	case nil:
		*r = result{}

		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSON value:", value))
	}

	var ans entities.Result
	if err := json.Unmarshal(bytes, &ans); err != nil {
		return err
	}

	*r = result(ans)

	return nil
}

func (r result) Value() (driver.Value, error) {
	if r.empty() {
		return nil, nil
	}

	return json.Marshal(entities.Result(r))
}
