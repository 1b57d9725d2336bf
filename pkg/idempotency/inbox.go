// Package idempotency provides an in-memory Inbox that runs a request handler at
// most once per idempotency key and replays the stored response afterwards.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Status represents the processing status of an inbox entry
type Status string

const (
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
)

var (
	// ErrRequestInProgress indicates another request with the same key has not finished yet.
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")
	// ErrFingerprintMismatch indicates the key was reused with a different payload.
	ErrFingerprintMismatch = errors.New("idempotency key reused with a different payload")
)

// Response is the stored outcome of a handler.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Entry is one inbox record.
type Entry struct {
	Key         string
	Fingerprint string
	Status      Status
	Response    *Response
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Config holds configuration for the inbox
type Config struct {
	// TTL is how long a finished response is replayed
	TTL time.Duration
	// CleanupInterval is how often expired entries are dropped
	CleanupInterval time.Duration
	// Now is the clock; time.Now when nil
	Now func() time.Time
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TTL:             24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// ProcessResult describes how a keyed request was served.
type ProcessResult struct {
	Replayed bool
	Response *Response
}

// ProcessFunc produces the response for a new key. Returning an error, or a
// response with a 5xx status, leaves the key free for a retry.
type ProcessFunc func(ctx context.Context) (*Response, error)

// Inbox manages idempotent request processing
type Inbox struct {
	config Config
	logger *zap.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[string]*Entry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewInbox creates a new inbox
func NewInbox(cfg Config, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Inbox{
		config:  cfg,
		logger:  logger,
		tracer:  otel.Tracer("inbox"),
		entries: make(map[string]*Entry),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Process runs fn once for key and replays its response to later callers
// until the entry expires. A later caller whose fingerprint differs from the
// first one gets ErrFingerprintMismatch instead of the stored response.
func (i *Inbox) Process(ctx context.Context, key, fingerprint string, fn ProcessFunc) (*ProcessResult, error) {
	ctx, span := i.tracer.Start(ctx, "inbox.process",
		trace.WithAttributes(attribute.String("idempotency_key", key)))
	defer span.End()

	now := i.config.Now()

	i.mu.Lock()
	if entry, ok := i.entries[key]; ok && now.Before(entry.ExpiresAt) {
		status, stored, storedFP := entry.Status, entry.Response, entry.Fingerprint
		i.mu.Unlock()
		if status == StatusStarted {
			span.SetAttributes(attribute.Bool("in_progress", true))
			return nil, ErrRequestInProgress
		}
		if storedFP != fingerprint {
			span.SetAttributes(attribute.Bool("fingerprint_mismatch", true))
			return nil, ErrFingerprintMismatch
		}
		span.SetAttributes(attribute.Bool("duplicate", true))
		return &ProcessResult{Replayed: true, Response: stored}, nil
	}
	i.entries[key] = &Entry{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      StatusStarted,
		CreatedAt:   now,
		ExpiresAt:   now.Add(i.config.TTL),
	}
	i.mu.Unlock()

	resp, err := i.run(ctx, key, fn)
	if err != nil || resp == nil || resp.StatusCode >= 500 {
		i.forget(key)
		if err != nil {
			span.RecordError(err)
		}
		return &ProcessResult{Response: resp}, err
	}

	i.mu.Lock()
	if entry, ok := i.entries[key]; ok {
		entry.Status = StatusFinished
		entry.Response = resp
	}
	i.mu.Unlock()

	return &ProcessResult{Response: resp}, nil
}

// run calls fn, releasing the key if fn panics.
func (i *Inbox) run(ctx context.Context, key string, fn ProcessFunc) (resp *Response, err error) {
	done := false
	defer func() {
		if !done {
			i.forget(key)
			i.logger.Warn("idempotent handler panicked, releasing key")
		}
	}()
	resp, err = fn(ctx)
	done = true
	return resp, err
}

func (i *Inbox) forget(key string) {
	i.mu.Lock()
	delete(i.entries, key)
	i.mu.Unlock()
}

// GenerateKey derives the inbox key from the request method, path and the
// caller's Idempotency-Key header.
func GenerateKey(method, path, headerKey string) string {
	data := strings.Join([]string{method, path, headerKey}, "|")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Fingerprint returns the hex SHA-256 of a request payload.
func Fingerprint(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

// StartCleanup starts the background cleanup goroutine
func (i *Inbox) StartCleanup() {
	go i.cleanupLoop()
	i.logger.Info("inbox cleanup started", zap.Duration("interval", i.config.CleanupInterval))
}

// Stop stops the inbox cleanup. It must only be called after StartCleanup.
func (i *Inbox) Stop() {
	i.cancel()
	<-i.done
	i.logger.Info("inbox stopped")
}

func (i *Inbox) cleanupLoop() {
	defer close(i.done)

	ticker := time.NewTicker(i.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.ctx.Done():
			return
		case <-ticker.C:
			if n := i.Cleanup(); n > 0 {
				i.logger.Info("inbox cleanup completed", zap.Int("deleted", n))
			}
		}
	}
}

// Cleanup removes expired entries and returns how many were dropped.
func (i *Inbox) Cleanup() int {
	now := i.config.Now()

	i.mu.Lock()
	defer i.mu.Unlock()

	var n int
	for key, entry := range i.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(i.entries, key)
			n++
		}
	}
	return n
}

// Stats holds inbox statistics
type Stats struct {
	TotalEntries int `json:"totalEntries"`
	Started      int `json:"started"`
	Finished     int `json:"finished"`
}

// Stats returns current inbox statistics
func (i *Inbox) Stats() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := Stats{TotalEntries: len(i.entries)}
	for _, entry := range i.entries {
		switch entry.Status {
		case StatusStarted:
			s.Started++
		case StatusFinished:
			s.Finished++
		}
	}
	return s
}
