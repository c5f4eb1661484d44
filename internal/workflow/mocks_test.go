package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/plan"
)

// --- mocks shared by the package tests ---

// memoryCheckpoints is an in-process CheckpointStore. The fan-out saves
// checkpoints from concurrent goroutines, so access is locked.
type memoryCheckpoints struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCheckpoints() *memoryCheckpoints {
	return &memoryCheckpoints{data: make(map[string][]byte)}
}

func (m *memoryCheckpoints) Get(_ context.Context, projectID, step string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[projectID+"/"+step]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (m *memoryCheckpoints) Save(_ context.Context, projectID, step string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[projectID+"/"+step] = result
	return nil
}

// fakeStatusStore applies mutations with the same merge semantics as the
// Firestore implementation, so replaying a mutation twice with the same
// arguments leaves the document unchanged.
type fakeStatusStore struct {
	mu sync.Mutex

	status      models.ProjectStatus
	jobStatuses models.JobStatuses
	transcript  *models.Transcript
	jobErrors   map[string]string
	generated   map[string]*models.GeneratedAsset
	workflowErr *models.WorkflowError

	errorRecords int
	calls        []string

	failOn map[string]error
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{failOn: make(map[string]error)}
}

func (s *fakeStatusStore) check(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.failOn[call]
}

func (s *fakeStatusStore) SetProjectStatus(_ context.Context, _ string, status models.ProjectStatus) error {
	if err := s.check("SetProjectStatus"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	return nil
}

func (s *fakeStatusStore) SetJobStatuses(_ context.Context, _ string, patch models.JobStatuses) error {
	if err := s.check("SetJobStatuses"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Transcription != "" {
		s.jobStatuses.Transcription = patch.Transcription
	}
	if patch.ContentGeneration != "" {
		s.jobStatuses.ContentGeneration = patch.ContentGeneration
	}
	return nil
}

func (s *fakeStatusStore) SaveTranscript(_ context.Context, _ string, transcript *models.Transcript) error {
	if err := s.check("SaveTranscript"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = transcript
	return nil
}

func (s *fakeStatusStore) SaveJobErrors(_ context.Context, _ string, jobErrors map[string]string) error {
	if err := s.check("SaveJobErrors"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobErrors == nil {
		s.jobErrors = make(map[string]string)
	}
	for k, v := range jobErrors {
		s.jobErrors[k] = v
	}
	return nil
}

func (s *fakeStatusStore) SaveGeneratedContent(_ context.Context, _ string, assets map[string]*models.GeneratedAsset) error {
	if err := s.check("SaveGeneratedContent"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generated == nil {
		s.generated = make(map[string]*models.GeneratedAsset)
	}
	for k, v := range assets {
		s.generated[k] = v
	}
	return nil
}

func (s *fakeStatusStore) RecordWorkflowError(_ context.Context, _ string, rec *models.WorkflowError, stage models.JobStatuses) error {
	if err := s.check("RecordWorkflowError"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.ProjectStatusFailed
	s.workflowErr = rec
	if stage.Transcription != "" {
		s.jobStatuses.Transcription = stage.Transcription
	}
	if stage.ContentGeneration != "" {
		s.jobStatuses.ContentGeneration = stage.ContentGeneration
	}
	s.errorRecords++
	return nil
}

type fakeTranscriber struct {
	mu         sync.Mutex
	calls      int
	transcript *models.Transcript
	err        error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ *models.WorkflowRequest, _ plan.Tier) (*models.Transcript, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.transcript != nil {
		return f.transcript, nil
	}
	return &models.Transcript{Text: "hello world", DurationSeconds: 42}, nil
}

// fakeGenerator fulfills every job with a canned asset unless the job name
// appears in failJobs.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	failJobs map[string]error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{calls: make(map[string]int), failJobs: make(map[string]error)}
}

func (f *fakeGenerator) Produce(_ context.Context, job string, _ *models.Transcript, _ *models.WorkflowRequest) (*models.GeneratedAsset, error) {
	f.mu.Lock()
	f.calls[job]++
	f.mu.Unlock()
	if err := f.failJobs[job]; err != nil {
		return nil, err
	}
	return &models.GeneratedAsset{Job: job, Text: "generated " + job}, nil
}

var errBoom = errors.New("boom")
