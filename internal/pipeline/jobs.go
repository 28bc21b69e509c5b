package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leangraph/internal/introspect"
)

// JobStatus represents the state of a crawl job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single corpus crawl: either an uploaded
// record stream or a module list sent to the prover.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	Label string `json:"label"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Modules []string `json:"modules,omitempty"`

	Progress Progress `json:"progress"`

	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	streamData []byte
	phaseTimes map[string]time.Time
	errors     []string
}

// Progress tracks crawl progress counts.
type Progress struct {
	RecordsParsed     int      `json:"records_parsed"`
	DeclarationsBuilt int      `json:"declarations_built"`
	GraphNodes        int      `json:"graph_nodes"`
	GraphEdges        int      `json:"graph_edges"`
	Errors            []string `json:"errors"`
}

// NewUploadJob creates a queued job over an already-emitted record
// stream.
func NewUploadJob(label string, stream []byte) *Job {
	return newJob(label, nil, StreamFingerprint(stream), stream)
}

// NewCrawlJob creates a queued job that introspects the given modules.
func NewCrawlJob(label string, modules []string) *Job {
	fp := StreamFingerprint([]byte(introspect.BuildSource(modules...)))
	return newJob(label, modules, fp, nil)
}

func newJob(label string, modules []string, fingerprint string, stream []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Label:       label,
		Status:      StatusQueued,
		Phase:       "queued",
		Modules:     modules,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
		streamData:  stream,
		phaseTimes:  map[string]time.Time{"queued": now},
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetPhase updates job status and phase atomically and stamps the
// phase entry time.
func (j *Job) SetPhase(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if j.phaseTimes == nil {
		j.phaseTimes = make(map[string]time.Time)
	}
	j.phaseTimes[phase] = j.UpdatedAt
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetRecordsParsed records the parsed record count.
func (j *Job) SetRecordsParsed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RecordsParsed = n
	j.UpdatedAt = time.Now()
}

// SetDeclarationsBuilt records the built declaration count.
func (j *Job) SetDeclarationsBuilt(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DeclarationsBuilt = n
	j.UpdatedAt = time.Now()
}

// SetGraphSize records node and edge counts of the built graph.
func (j *Job) SetGraphSize(nodes, edges int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.GraphNodes = nodes
	j.Progress.GraphEdges = edges
	j.UpdatedAt = time.Now()
}

// SetStreamData sets the raw record stream for processing.
func (j *Job) SetStreamData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.streamData = data
}

// StreamData returns the raw record stream.
func (j *Job) StreamData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.streamData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string               `json:"job_id"`
	Label       string               `json:"label"`
	Status      JobStatus            `json:"status"`
	Phase       string               `json:"phase"`
	Modules     []string             `json:"modules,omitempty"`
	Progress    Progress             `json:"progress"`
	Fingerprint string               `json:"fingerprint"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	PhaseTimes  map[string]time.Time `json:"phase_times"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	times := make(map[string]time.Time, len(j.phaseTimes))
	for phase, at := range j.phaseTimes {
		times[phase] = at
	}
	return JobSnapshot{
		ID:          j.ID,
		Label:       j.Label,
		Status:      j.Status,
		Phase:       j.Phase,
		Modules:     append([]string(nil), j.Modules...),
		Fingerprint: j.Fingerprint,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		PhaseTimes:  times,
		Progress: Progress{
			RecordsParsed:     j.Progress.RecordsParsed,
			DeclarationsBuilt: j.Progress.DeclarationsBuilt,
			GraphNodes:        j.Progress.GraphNodes,
			GraphEdges:        j.Progress.GraphEdges,
			Errors:            errs,
		},
	}
}

// StreamFingerprint computes SHA-256 of a record stream and returns
// the hex string used for duplicate detection.
func StreamFingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
