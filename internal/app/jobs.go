package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/domain"
)

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type JobProgress struct {
	Stage      string `json:"stage"`
	Percentage int    `json:"percentage"`
}

type Job struct {
	ID        string        `json:"job_id"`
	Status    JobStatus     `json:"status"`
	Progress  JobProgress   `json:"progress"`
	Result    *ScrapeReport `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type JobStats struct {
	Active    int `json:"active_jobs"`
	Completed int `json:"completed_jobs"`
	Failed    int `json:"failed_jobs"`
	Total     int `json:"total_jobs"`
}

// JobRegistry tracks async scrape jobs in memory. Jobs live for the process.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: map[string]*Job{}, now: time.Now}
}

// Create registers a processing job and returns its id.
func (r *JobRegistry) Create() string {
	now := r.now().UTC()
	id := uuid.NewString()
	r.mu.Lock()
	r.jobs[id] = &Job{
		ID:        id,
		Status:    JobProcessing,
		Progress:  JobProgress{Stage: StageScraping, Percentage: 0},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Unlock()
	return id
}

func (r *JobRegistry) SetProgress(id, stage string, pct int) {
	r.update(id, func(j *Job) { j.Progress = JobProgress{Stage: stage, Percentage: pct} })
}

func (r *JobRegistry) Complete(id string, rep ScrapeReport) {
	r.update(id, func(j *Job) {
		j.Status = JobCompleted
		j.Progress = JobProgress{Stage: StageCompleted, Percentage: 100}
		j.Result = &rep
	})
}

func (r *JobRegistry) Fail(id string, err error) {
	r.update(id, func(j *Job) {
		j.Status = JobFailed
		j.Error = err.Error()
	})
}

func (r *JobRegistry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	fn(j)
	j.UpdatedAt = r.now().UTC()
}

// Get returns a copy of the job.
func (r *JobRegistry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, domain.ErrNotFound
	}
	return *j, nil
}

// List returns all jobs, newest first.
func (r *JobRegistry) List() []Job {
	r.mu.RLock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (r *JobRegistry) Stats() JobStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := JobStats{Total: len(r.jobs)}
	for _, j := range r.jobs {
		switch j.Status {
		case JobProcessing:
			st.Active++
		case JobCompleted:
			st.Completed++
		case JobFailed:
			st.Failed++
		}
	}
	return st
}

// StartScrape registers a job and runs the scrape in the background. The job
// outlives the caller's request, so it runs on its own context.
func (s *ScrapeService) StartScrape(jobs *JobRegistry, req ScrapeRequest) string {
	id := jobs.Create()
	req.Progress = func(stage string, pct int) { jobs.SetProgress(id, stage, pct) }
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("job_id", id).Interface("panic", rec).Msg("scrape job panicked")
				jobs.update(id, func(j *Job) { j.Status = JobFailed; j.Error = "internal error" })
			}
		}()
		rep, err := s.ScrapeLocation(context.Background(), req)
		if err != nil {
			log.Warn().Err(err).Str("job_id", id).Msg("scrape job failed")
			jobs.Fail(id, err)
			return
		}
		jobs.Complete(id, rep)
	}()
	return id
}
