package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup renders the report pages so the memo store is hot.
	TaskCacheWarmup = "analytics:cache_warmup"
)

// ErrInvalidYear is returned when a warmup is requested for an impossible year.
var ErrInvalidYear = errors.New("jobs: invalid warmup year")

// CacheWarmupPayload selects the year the overview page is rendered for. Zero
// means the current year.
type CacheWarmupPayload struct {
	Year int `json:"year"`
}

// NewCacheWarmupTask constructs a cache warmup task.
func NewCacheWarmupTask(year int, opts ...asynq.Option) (*asynq.Task, error) {
	if year != 0 && (year < 1900 || year > 9999) {
		return nil, ErrInvalidYear
	}
	data, err := json.Marshal(CacheWarmupPayload{Year: year})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data, opts...), nil
}
