// Package checknfs implements a remote NFS timeout probe in the nagios
// plugin mold. It fetches `/proc/self/mountstats` from a remote host,
// diffs the per-op RPC counters against the raw text persisted by the
// previous run, and reports CRITICAL whenever any operation on any NFS
// mount incurred new major timeouts. Major timeouts on GETATTR, LOOKUP
// or ACCESS normally indicate an issue reaching the NFS server.
package checknfs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jessegalley/checknfs/internal/history"
)

// Severity is the tri-state result of a check run. The values line up
// with the nagios plugin exit codes.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Result is the terminal state of one check run: a severity, a one-line
// message for the scheduler, and optional nagios perfdata counters.
type Result struct {
	Severity Severity
	Message  string
	Perfdata string
}

// Fetcher retrieves the verbatim mountstats content from the target host.
// Any transport or remote command failure comes back as an error; the
// check doesn't distinguish failure modes.
type Fetcher interface {
	FetchMountstats() (string, error)
}

// HistoryStore loads and saves the raw mountstats text from the previous
// run. Load must return an error matching history.ErrNoHistory when no
// prior text exists for the target; all other load failures are treated
// as fatal by the check.
type HistoryStore interface {
	Load() (string, error)
	Save(content string) error
}

// Check runs the timeout comparison for one target host.
type Check struct {
	fetcher Fetcher
	store   HistoryStore
	log     *zap.Logger
}

// New constructs a Check from its collaborators. A nil logger disables
// diagnostics.
func New(fetcher Fetcher, store HistoryStore, log *zap.Logger) *Check {
	if log == nil {
		log = zap.NewNop()
	}

	return &Check{fetcher: fetcher, store: store, log: log}
}

// Run performs one check: fetch, load history, persist, diff. It always
// reaches exactly one terminal state. A fetch failure is WARNING and a
// missing history file is OK (first run, history gets created); those are
// expected conditions and come back in the Result. Parse failures and
// storage failures other than missing history are genuine environment
// problems and are returned as errors instead of being mapped to a
// severity.
func (c *Check) Run() (Result, error) {
	newRaw, err := c.fetcher.FetchMountstats()
	if err != nil {
		c.log.Warn("mountstats fetch failed", zap.Error(err))
		return Result{Severity: SeverityWarning, Message: "Failed to fetch remote mountstats"}, nil
	}

	oldRaw, err := c.store.Load()
	if err != nil {
		if errors.Is(err, history.ErrNoHistory) {
			if err := c.store.Save(newRaw); err != nil {
				return Result{}, fmt.Errorf("couldn't create mountstats history: %w", err)
			}
			c.log.Info("first run for target, history created")
			return Result{Severity: SeverityOK, Message: "Historical stats file created"}, nil
		}
		return Result{}, fmt.Errorf("couldn't load mountstats history: %w", err)
	}

	oldSnap, err := ParseMountstats(oldRaw)
	if err != nil {
		return Result{}, fmt.Errorf("couldn't parse historical mountstats: %w", err)
	}
	newSnap, err := ParseMountstats(newRaw)
	if err != nil {
		return Result{}, fmt.Errorf("couldn't parse fetched mountstats: %w", err)
	}

	// history advances every run after the first, whatever the diff below
	// finds, so the next run always compares against this fetch
	if err := c.store.Save(newRaw); err != nil {
		return Result{}, fmt.Errorf("couldn't save mountstats history: %w", err)
	}

	c.log.Debug("comparing snapshots",
		zap.Int("old_mounts", len(oldSnap)),
		zap.Int("new_mounts", len(newSnap)))

	return c.compare(oldSnap, newSnap), nil
}

// compare diffs every mount present in both snapshots and aggregates the
// alerts into one Result. Mounts only present on one side are skipped: a
// share mounted since the last run has no baseline yet, and one unmounted
// since then has nothing to compare.
func (c *Check) compare(oldSnap, newSnap Snapshot) Result {
	records := make([]MountRecord, 0, len(newSnap))
	for id, rec := range newSnap {
		if _, ok := oldSnap[id]; ok {
			records = append(records, rec)
		}
	}
	// map order isn't stable, but the output line should be
	sort.Slice(records, func(i, j int) bool { return records[i].Device < records[j].Device })

	var failing []string
	totals := make(map[string]uint64)
	for _, rec := range records {
		alerts := DiffTimeouts(oldSnap[rec.ID], rec)
		if len(alerts) == 0 {
			continue
		}

		descs := make([]string, len(alerts))
		for i, a := range alerts {
			descs[i] = a.String()
			totals[a.Op] += a.Delta
		}
		c.log.Warn("major timeouts increased",
			zap.String("device", rec.Device),
			zap.String("mountpoint", rec.Mountpoint),
			zap.Strings("ops", descs))

		failing = append(failing, fmt.Sprintf("NFS Operation Errors for %s: %s", rec.Device, strings.Join(descs, ",")))
	}

	if len(failing) > 0 {
		return Result{
			Severity: SeverityCritical,
			Message:  strings.Join(failing, "; "),
			Perfdata: perfdata(totals),
		}
	}

	return Result{Severity: SeverityOK, Message: "No NFS errors found"}
}

// perfdata renders the summed timeout deltas as nagios counter perfdata,
// in NFSv3Ops order.
func perfdata(totals map[string]uint64) string {
	var counters []string
	for _, op := range NFSv3Ops {
		if delta, ok := totals[op]; ok {
			counters = append(counters, fmt.Sprintf("%s=%dc", op, delta))
		}
	}

	return strings.Join(counters, " ")
}
