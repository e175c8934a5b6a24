package service

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/rentroll-payment-ledger/internal/source"
)

// ExportInput is one export to parse. Path is opened when Reader is nil.
type ExportInput struct {
	Path   string
	Reader io.Reader
}

func (in ExportInput) origin() string {
	if in.Path != "" {
		return in.Path
	}
	return "upload"
}

// ParsePool parses independent export files concurrently on a bounded worker pool
type ParsePool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewParsePool(config WorkerPoolConfig, logger *slog.Logger) (*ParsePool, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &ParsePool{
		pool:   pool,
		logger: logger,
	}, nil
}

// ParseAll returns one batch per input, in input order. The first unreadable
// input aborts the whole set.
func (p *ParsePool) ParseAll(parser source.ExportParser, inputs []ExportInput) ([]*source.Batch, error) {
	batches := make([]*source.Batch, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			batches[i], errs[i] = parseOne(parser, in)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("Failed to submit export to worker pool", "origin", in.origin(), "error", err)
			errs[i] = fmt.Errorf("failed to schedule parse of %s: %w", in.origin(), err)
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		p.logger.Info("Export parsed",
			"method", batches[i].Method,
			"origin", batches[i].Origin,
			"records", len(batches[i].Results),
			"payments", len(batches[i].Payments()),
		)
	}
	return batches, nil
}

func parseOne(parser source.ExportParser, in ExportInput) (*source.Batch, error) {
	if in.Reader == nil {
		return source.ParseFile(parser, in.Path)
	}

	batch, err := parser.Parse(in.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s export %s: %w", parser.Method(), in.origin(), err)
	}
	batch.Origin = in.origin()
	return batch, nil
}

// Shutdown releases the pool's workers
func (p *ParsePool) Shutdown() {
	p.logger.Info("Shutting down parse pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of running workers in the pool.
func (p *ParsePool) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *ParsePool) Capacity() int {
	return p.pool.Cap()
}
