// Package pipeline drives the decode loop: list archive files, decode each
// into a sealed report table, publish the results, and record provenance.
// Parallelism is file-granular only; decoding within one file is strictly
// sequential so checksums and line numbers stay deterministic.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/oceanobs/imma-etl/internal/imma"
	"github.com/oceanobs/imma-etl/internal/observability"
)

// Lister enumerates candidate archive files.
type Lister interface {
	ListFiles() ([]string, error)
}

// Loader delivers a sealed report table to the sink.
type Loader interface {
	LoadTable(ctx context.Context, table *imma.ReportTable) error
}

// ProvenanceStore persists file provenance and answers duplicate checks.
type ProvenanceStore interface {
	Seen(ctx context.Context, checksum string) (bool, error)
	Record(ctx context.Context, prov imma.Provenance) error
}

// Pipeline owns one decoder and fans newly discovered files out to workers.
type Pipeline struct {
	lister  Lister
	decoder *imma.Decoder
	loader  Loader
	store   ProvenanceStore
	logger  *slog.Logger
	metrics *observability.Metrics

	workers      int
	pollInterval time.Duration
	clock        clockwork.Clock
	runID        string

	ready atomic.Bool

	mu        sync.Mutex
	processed map[string]bool // paths fully handled this run
}

// Options carries the knobs main wires from config.
type Options struct {
	Workers      int
	PollInterval time.Duration
	Clock        clockwork.Clock // nil selects the real clock
	RunID        string          // empty generates a fresh id
}

// New creates a Pipeline. loader and store may be nil; a nil loader drops
// decoded tables after provenance accounting (useful for dry runs), a nil
// store disables duplicate detection.
func New(l Lister, d *imma.Decoder, loader Loader, store ProvenanceStore, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Pipeline{
		lister:       l,
		decoder:      d,
		loader:       loader,
		store:        store,
		logger:       logger.With("run_id", runID),
		metrics:      metrics,
		workers:      opts.Workers,
		pollInterval: opts.PollInterval,
		clock:        opts.Clock,
		runID:        runID,
		processed:    make(map[string]bool),
	}
}

// RunID returns the identifier stamped on this run's logs and messages.
func (p *Pipeline) RunID() string { return p.runID }

// CheckReadiness returns nil once the pipeline has fully processed at least
// one file.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any files yet")
	}
	return nil
}

// Run polls for new files until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "workers", p.workers, "poll_interval", p.pollInterval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		p.Poll(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-p.clock.After(p.pollInterval):
		}
	}
}

// Poll runs one list-decode-load cycle over all newly discovered files.
func (p *Pipeline) Poll(ctx context.Context) {
	files, err := p.lister.ListFiles()
	if err != nil {
		p.logger.Error("list files failed", "error", err)
		return
	}

	var pending []string
	p.mu.Lock()
	for _, f := range files {
		if !p.processed[f] {
			pending = append(pending, f)
		}
	}
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	p.logger.Info("poll found new files", "count", len(pending))

	// Independent files decode concurrently; each worker owns its tables
	// exclusively and shares only the immutable decoder.
	queue := make(chan string)
	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				p.processFile(ctx, path)
			}
		}()
	}

	for _, path := range pending {
		select {
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return
		case queue <- path:
		}
	}
	close(queue)
	wg.Wait()
}

// processFile decodes one archive file end to end.
func (p *Pipeline) processFile(ctx context.Context, path string) {
	start := time.Now()
	logger := p.logger.With("file", path)

	table, err := p.decoder.DecodeFile(path)
	if err != nil {
		p.metrics.FileErrors.Inc()
		logger.Error("decode failed", "error", err)
		// Not marked processed: decode errors are I/O failures on the
		// archive, retried on the next poll like a failed load.
		return
	}

	prov, err := table.Provenance()
	if err != nil {
		p.metrics.FileErrors.Inc()
		logger.Error("provenance unavailable", "error", err)
		return
	}

	if p.store != nil {
		seen, err := p.store.Seen(ctx, prov.Checksum)
		if err != nil {
			p.metrics.FileErrors.Inc()
			logger.Error("duplicate check failed", "error", err)
			return
		}
		if seen {
			p.metrics.FilesSkipped.Inc()
			logger.Info("skipping duplicate file", "checksum", prov.Checksum)
			p.markProcessed(path)
			return
		}
	}

	if p.loader != nil {
		if err := p.loader.LoadTable(ctx, table); err != nil {
			p.metrics.FileErrors.Inc()
			logger.Error("load failed", "error", err)
			// Not marked processed: the file is retried on the next poll.
			return
		}
	}

	if p.store != nil {
		if err := p.store.Record(ctx, prov); err != nil {
			p.metrics.FileErrors.Inc()
			logger.Error("record provenance failed", "error", err)
			return
		}
	}

	p.observe(table, prov, time.Since(start))
	p.markProcessed(path)
	p.ready.Store(true)

	logger.Info("file decoded",
		"records", prov.TotalRecords,
		"rejected", prov.RejectedRecords,
		"checksum", prov.Checksum,
		"duration", time.Since(start),
	)
}

func (p *Pipeline) observe(table *imma.ReportTable, prov imma.Provenance, elapsed time.Duration) {
	p.metrics.FilesProcessed.Inc()
	p.metrics.RecordsDecoded.Add(float64(prov.TotalRecords))
	p.metrics.RecordsRejected.Add(float64(prov.RejectedRecords))
	p.metrics.DecodeDuration.Observe(elapsed.Seconds())
	p.metrics.FileRecords.Observe(float64(prov.TotalRecords))

	for rec := range table.All() {
		for _, att := range rec.Attachments {
			p.metrics.Attachments.WithLabelValues(att.ID).Inc()
		}
		for _, problem := range rec.Problems {
			p.metrics.FieldProblems.WithLabelValues(string(problem.Kind)).Inc()
		}
	}
}

func (p *Pipeline) markProcessed(path string) {
	p.mu.Lock()
	p.processed[path] = true
	p.mu.Unlock()
}
