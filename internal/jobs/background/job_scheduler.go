package background

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"techmart/internal/models"

	"github.com/go-co-op/gocron/v2"
)

// CatalogRefresher reloads the storefront catalogue from the database.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) (*models.CatalogSnapshot, error)
}

// SnapshotWriter exports the current catalogue to object storage.
type SnapshotWriter interface {
	Export(ctx context.Context) (string, error)
}

// Intervals configures how often each job runs. A zero interval disables the job.
type Intervals struct {
	Refresh  time.Duration
	Snapshot time.Duration
}

// JobScheduler runs the catalogue maintenance jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	refresher CatalogRefresher
	exporter  SnapshotWriter
	timeout   time.Duration
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a scheduler with the catalogue jobs registered.
// exporter may be nil when object storage is not configured.
func NewJobScheduler(refresher CatalogRefresher, exporter SnapshotWriter, intervals Intervals) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		refresher: refresher,
		exporter:  exporter,
		timeout:   2 * time.Minute,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(intervals); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// JobNames lists the registered jobs
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for _, job := range js.jobs {
		names = append(names, job.Name())
	}
	return names
}

func (js *JobScheduler) registerJobs(intervals Intervals) error {
	if intervals.Refresh > 0 {
		if err := js.add("catalog-cache-refresh", intervals.Refresh, js.RefreshCatalog); err != nil {
			return err
		}
	}

	if intervals.Snapshot > 0 && js.exporter != nil {
		if err := js.add("catalog-snapshot-export", intervals.Snapshot, js.ExportSnapshot); err != nil {
			return err
		}
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
	return nil
}

func (js *JobScheduler) add(name string, every time.Duration, task func() error) error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}

	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

// RefreshCatalog reloads the catalogue and replaces the cached snapshot
func (js *JobScheduler) RefreshCatalog() error {
	ctx, cancel := context.WithTimeout(context.Background(), js.timeout)
	defer cancel()

	started := time.Now()
	snapshot, err := js.refresher.RefreshCatalog(ctx)
	if err != nil {
		log.Printf("Failed to refresh catalog: %v", err)
		return err
	}

	log.Printf("Refreshed catalog %s with %d products in %s", snapshot.Version, len(snapshot.Products), time.Since(started).Round(time.Millisecond))
	return nil
}

// ExportSnapshot writes the current catalogue to object storage
func (js *JobScheduler) ExportSnapshot() error {
	ctx, cancel := context.WithTimeout(context.Background(), js.timeout)
	defer cancel()

	if _, err := js.exporter.Export(ctx); err != nil {
		log.Printf("Failed to export catalog snapshot: %v", err)
		return err
	}
	return nil
}
