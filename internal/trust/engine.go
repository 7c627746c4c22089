// Package trust maintains the durable per-agent trust ledger. Scores move
// multiplicatively on success/failure, clamped to configured bounds, and are
// persisted through an append-only journal compacted into atomic snapshots.
package trust

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arbiter-systems/qagov/common/logging"
	"github.com/arbiter-systems/qagov/internal/metrics"
)

const (
	snapshotFile = "trust_snapshot.json"
	journalFile  = "trust_journal.jsonl"

	// EventSuccess and EventFailure label journal entries.
	EventSuccess = "success"
	EventFailure = "failure"
)

// JournalEntry records one score mutation. Score is the post-mutation value,
// so replay applies entries verbatim and later entries for an agent win.
type JournalEntry struct {
	Agent     string    `json:"agent"`
	Score     float64   `json:"score"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Config controls engine construction.
type Config struct {
	StorageDir        string
	SuccessMultiplier float64
	FailureMultiplier float64
	Minimum           float64
	Maximum           float64
	FlushInterval     int
	AgentDefaults     map[string]float64
}

func (c *Config) applyDefaults() {
	if c.SuccessMultiplier == 0 {
		c.SuccessMultiplier = 1.05
	}
	if c.FailureMultiplier == 0 {
		c.FailureMultiplier = 0.9
	}
	if c.Minimum == 0 {
		c.Minimum = 0.1
	}
	if c.Maximum == 0 {
		c.Maximum = 1.5
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 10
	}
}

// Engine is the trust ledger. All mutations and flushes are serialized by one
// mutex; reads return defensive copies. In-memory state stays authoritative
// across journal I/O failures.
type Engine struct {
	cfg    Config
	logger *logging.Logger

	snapshotPath string
	journalPath  string

	mu            sync.Mutex
	scores        map[string]float64
	pendingWrites int
}

// New creates an engine rooted at cfg.StorageDir, loading the last snapshot
// and replaying the journal on top of it. An unusable storage directory is a
// construction error; missing or corrupt ledger files are not.
func New(cfg Config, logger *logging.Logger) (*Engine, error) {
	cfg.applyDefaults()
	if cfg.StorageDir == "" {
		return nil, fmt.Errorf("trust: storage dir must not be empty")
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("trust: create storage dir: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger.With(logging.Component("trust")),
		snapshotPath: filepath.Join(cfg.StorageDir, snapshotFile),
		journalPath:  filepath.Join(cfg.StorageDir, journalFile),
		scores:       make(map[string]float64),
	}

	e.loadSnapshot()
	e.replayJournal()

	return e, nil
}

// loadSnapshot seeds the score map from the last compaction. Missing or
// corrupt snapshots leave the map empty.
func (e *Engine) loadSnapshot() {
	data, err := os.ReadFile(e.snapshotPath)
	if err != nil {
		return
	}
	var snapshot map[string]float64
	if err := json.Unmarshal(data, &snapshot); err != nil {
		e.logger.Warn("ignoring corrupt trust snapshot", logging.Error(err))
		return
	}
	e.scores = snapshot
}

// replayJournal applies journal entries in append order. Corrupt lines are
// skipped; the rest still apply.
func (e *Engine) replayJournal() {
	f, err := os.Open(e.journalPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	replayed := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			e.logger.Warn("skipping corrupt journal entry", logging.Error(err))
			continue
		}
		e.scores[entry.Agent] = entry.Score
		replayed++
	}
	if replayed > 0 {
		e.logger.Info("replayed trust journal", "entries", replayed)
	}
}

// RecordSuccess rewards an agent with the success multiplier.
func (e *Engine) RecordSuccess(agent string) {
	e.record(agent, e.cfg.SuccessMultiplier, EventSuccess)
}

// RecordFailure penalizes an agent with the failure multiplier.
func (e *Engine) RecordFailure(agent string) {
	e.record(agent, e.cfg.FailureMultiplier, EventFailure)
}

func (e *Engine) record(agent string, multiplier float64, event string) {
	if agent == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	score, ok := e.scores[agent]
	if !ok {
		score = e.defaultScore(agent)
	}
	score = e.clamp(score * multiplier)
	e.scores[agent] = score

	metrics.TrustMutationsTotal.WithLabelValues(event).Inc()

	entry := JournalEntry{
		Agent:     agent,
		Score:     score,
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
	if err := e.appendJournal(entry); err != nil {
		// In-memory state stays authoritative; durability catches up at the
		// next successful flush.
		e.logger.Warn("journal append failed",
			logging.Agent(agent), logging.Error(err))
	}

	e.pendingWrites++
	if e.pendingWrites >= e.cfg.FlushInterval {
		if err := e.flushLocked(); err != nil {
			e.logger.Error("snapshot flush failed", logging.Error(err))
		}
	}
}

// EnsureAgent creates a ledger entry for agent at its default score if none
// exists yet.
func (e *Engine) EnsureAgent(agent string) {
	if agent == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.scores[agent]; !ok {
		e.scores[agent] = e.defaultScore(agent)
	}
}

// Scores returns a defensive copy of the current score map.
func (e *Engine) Scores() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]float64, len(e.scores))
	for agent, score := range e.scores {
		out[agent] = score
	}
	return out
}

// Score returns agent's current score, or its default when untracked.
func (e *Engine) Score(agent string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if score, ok := e.scores[agent]; ok {
		return score
	}
	return e.defaultScore(agent)
}

// Flush forces a snapshot compaction regardless of pending-write count.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

// Close flushes the ledger. The engine must not be used afterwards.
func (e *Engine) Close() error {
	return e.Flush()
}

// flushLocked serializes the full score map to a temp file, fsyncs, renames
// over the snapshot and truncates the journal. On failure the temp file is
// removed and the journal kept, so the next load still reconstructs state.
func (e *Engine) flushLocked() error {
	start := time.Now()

	data, err := json.MarshalIndent(e.scores, "", "  ")
	if err != nil {
		metrics.TrustFlushErrors.Inc()
		return fmt.Errorf("trust: marshal snapshot: %w", err)
	}

	tmpPath := e.snapshotPath + ".tmp"
	if err := writeFileSync(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		metrics.TrustFlushErrors.Inc()
		return fmt.Errorf("trust: write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, e.snapshotPath); err != nil {
		os.Remove(tmpPath)
		metrics.TrustFlushErrors.Inc()
		return fmt.Errorf("trust: swap snapshot: %w", err)
	}

	if err := os.Remove(e.journalPath); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("journal truncate failed", logging.Error(err))
	}

	e.pendingWrites = 0
	metrics.TrustFlushesTotal.Inc()
	metrics.TrustFlushDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (e *Engine) appendJournal(entry JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(e.journalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func (e *Engine) defaultScore(agent string) float64 {
	if score, ok := e.cfg.AgentDefaults[agent]; ok {
		return e.clamp(score)
	}
	return 1.0
}

func (e *Engine) clamp(score float64) float64 {
	if score < e.cfg.Minimum {
		return e.cfg.Minimum
	}
	if score > e.cfg.Maximum {
		return e.cfg.Maximum
	}
	return score
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
