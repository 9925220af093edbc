package orchestrator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

type WorkerRegistry interface {
	Register(string, Worker)
	Get(string) (Worker, bool)
	AvailableProcessors() []string
	CancelProcessByType(string) error
}

// Registry maps job types to the worker that runs them
type Registry struct {
	processors map[string]Worker
	mu         sync.RWMutex
}

// NewWorkerRegistry registers each worker under its own type
func NewWorkerRegistry(processors ...Worker) WorkerRegistry {
	registry := &Registry{
		processors: make(map[string]Worker),
	}

	for _, process := range processors {
		registry.Register(process.Type(), process)
	}

	return registry
}

func (r *Registry) CancelProcessByType(processType string) error {
	process, ok := r.Get(processType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, processType)
	}

	return process.Cancel()
}

// Register adds a worker, replacing any earlier one of the same type
func (r *Registry) Register(jobType string, processor Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processors[jobType] = processor

	log.Info().
		Str("jobType", jobType).
		Str("processor", processor.Name()).
		Msg("Registered job processor")
}

func (r *Registry) Get(jobType string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	processor, exists := r.processors[jobType]
	return processor, exists
}

// AvailableProcessors returns the registered job types in sorted order
func (r *Registry) AvailableProcessors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	processors := make([]string, 0, len(r.processors))
	for jobType := range r.processors {
		processors = append(processors, jobType)
	}
	sort.Strings(processors)

	return processors
}
