// Package traceroute runs the system traceroute binary and parses its output.
package traceroute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
)

var ErrBinaryNotFound = errors.New("traceroute: binary not found")

// Config controls how traceroute is invoked.
type Config struct {
	Binary      string
	MaxHops     int
	Queries     int // probes per TTL
	WaitSeconds int // per-probe wait
	Timeout     time.Duration
}

// Runner implements ports.Tracer on top of the traceroute binary.
type Runner struct {
	cfg Config
}

// NewRunner creates a new Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = "traceroute"
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 30
	}
	if cfg.Queries <= 0 {
		cfg.Queries = 1
	}
	if cfg.WaitSeconds <= 0 {
		cfg.WaitSeconds = 2
	}
	return &Runner{cfg: cfg}
}

// Args returns the command-line arguments used to trace target.
func (r *Runner) Args(target string) []string {
	return []string{
		"-n",
		"-q", strconv.Itoa(r.cfg.Queries),
		"-w", strconv.Itoa(r.cfg.WaitSeconds),
		"-m", strconv.Itoa(r.cfg.MaxHops),
		target,
	}
}

// Trace runs traceroute against target. If the run times out after some
// hops were printed, those hops are returned without error.
func (r *Runner) Trace(ctx context.Context, target string) ([]domain.Hop, error) {
	bin, err := exec.LookPath(r.cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, r.cfg.Binary, domain.ErrUnavailable)
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, r.Args(target)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	hops, parseErr := ParseOutput(&stdout)

	log := logging.FromContext(ctx)
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parseErr == nil {
			log.Warn("traceroute timed out, using partial result",
				"target", target, "hops", len(hops), "elapsed", time.Since(start).String())
			return hops, nil
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("run %s: %w", r.cfg.Binary, runErr)
		}
		return nil, fmt.Errorf("run %s: %w: %s", r.cfg.Binary, runErr, msg)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	log.Debug("traceroute finished", "target", target, "hops", len(hops), "elapsed", time.Since(start).String())
	return hops, nil
}
