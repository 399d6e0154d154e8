package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/metrics"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

// State of one chat's scan job.
type State int

const (
	StateNoJob State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	default:
		return "NoJob"
	}
}

// DefaultInterval between scan ticks of one chat.
const DefaultInterval = 60 * time.Second

type job struct {
	tenant   models.TenantID
	state    State
	cancel   context.CancelFunc
	inFlight atomic.Bool
}

// Scheduler owns one recurring scan job per chat. Ticks are skipped while
// the previous one is still running and while the job is paused for a
// pair list update.
type Scheduler struct {
	interval  time.Duration
	evaluator *Evaluator
	settings  *store.Settings

	mu       sync.Mutex
	jobs     map[models.TenantID]*job
	updating map[models.TenantID]bool
}

func NewScheduler(evaluator *Evaluator, settings *store.Settings, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		interval:  interval,
		evaluator: evaluator,
		settings:  settings,
		jobs:      make(map[models.TenantID]*job),
		updating:  make(map[models.TenantID]bool),
	}
	// results of a tick that outlives its job must not reach the chat
	evaluator.SetDeliveryGate(s.deliverable)
	return s
}

// requiredKeys must be configured before scanning may start.
var requiredKeys = map[string]bool{
	models.KeyExchange:       true,
	models.KeyBaseCoin:       true,
	models.KeyMinQuoteVolume: true,
	models.KeyTimeframes:     true,
}

// Start launches the chat's scan job, or resumes it when one already
// exists. Fails with ErrConfigIncomplete when required settings are
// missing so the caller can redirect the user to configuration.
func (s *Scheduler) Start(ctx context.Context, tenant models.TenantID) (err error) {
	_, missing, err := s.settings.Load(ctx, tenant)
	if err != nil {
		return err
	}
	var missingRequired []string
	for _, k := range missing {
		if requiredKeys[k] {
			missingRequired = append(missingRequired, k)
		}
	}
	if len(missingRequired) > 0 {
		return errors.Wrapf(ErrConfigIncomplete, "missing %v", missingRequired)
	}

	s.mu.Lock()
	if s.updating[tenant] {
		// a pair list update holds the job paused; the start takes effect
		// when the update finishes, never mid-generation
		if _, ok := s.jobs[tenant]; !ok {
			jobCtx, cancel := context.WithCancel(context.Background())
			j := &job{tenant: tenant, state: StatePaused, cancel: cancel}
			s.jobs[tenant] = j
			go s.run(jobCtx, j)
		}
		s.mu.Unlock()
		logger.Info("scheduler: chat=%s start deferred until pair list update finishes", tenant)
		return s.settings.SetActive(ctx, tenant, true)
	}
	if j, ok := s.jobs[tenant]; ok && j.state != StateStopped {
		// second start resumes, never duplicates the job
		j.state = StateRunning
		s.mu.Unlock()
		return s.settings.SetActive(ctx, tenant, true)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{tenant: tenant, state: StateRunning, cancel: cancel}
	s.jobs[tenant] = j
	s.mu.Unlock()

	go s.run(jobCtx, j)
	logger.Info("scheduler: chat=%s job started, interval=%s", tenant, s.interval)
	return s.settings.SetActive(ctx, tenant, true)
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx, j)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, j *job) {
	if !j.inFlight.CompareAndSwap(false, true) {
		metrics.TicksSkipped.Inc()
		return
	}
	// state is checked after winning the in-flight slot, so a pause that
	// lands between the two never races a fresh evaluation
	s.mu.Lock()
	state := j.state
	s.mu.Unlock()
	if state != StateRunning {
		j.inFlight.Store(false)
		return
	}
	go func() {
		defer j.inFlight.Store(false)
		// a stop lets the in-flight tick finish, so detach from the job
		// context and bound the pass by the interval instead
		tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.interval)
		defer cancel()
		if err := s.evaluator.RunOnce(tickCtx, j.tenant); err != nil {
			logger.Error("scheduler: chat=%s tick: %v", j.tenant, err)
		}
	}()
}

// Pause suspends ticking for the duration of a pair list update and
// reports whether the job was running before. Until Resume, Start
// requests are deferred instead of re-enabling ticks. Waits for an
// in-flight tick to drain so the update begins quiet.
func (s *Scheduler) Pause(tenant models.TenantID) bool {
	s.mu.Lock()
	s.updating[tenant] = true
	j, ok := s.jobs[tenant]
	was := ok && j.state == StateRunning
	if was {
		j.state = StatePaused
	}
	s.mu.Unlock()

	if ok {
		deadline := time.Now().Add(s.interval)
		for j.inFlight.Load() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}
	return was
}

// Resume ends the update hold and returns a paused job to Running,
// including a job created by a Start that arrived during the update.
func (s *Scheduler) Resume(tenant models.TenantID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.updating, tenant)
	if j, ok := s.jobs[tenant]; ok && j.state == StatePaused {
		j.state = StateRunning
	}
}

// deliverable reports whether results for the chat may still be handed
// to the sink. A tick finishing after Stop is silently discarded.
func (s *Scheduler) deliverable(tenant models.TenantID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[tenant]
	return ok && j.state == StateRunning
}

// Stop cancels the chat's job and clears the persisted active flag.
// Idempotent.
func (s *Scheduler) Stop(ctx context.Context, tenant models.TenantID) error {
	s.mu.Lock()
	if j, ok := s.jobs[tenant]; ok {
		j.state = StateStopped
		j.cancel()
		delete(s.jobs, tenant)
		logger.Info("scheduler: chat=%s job stopped", tenant)
	}
	s.mu.Unlock()
	return s.settings.SetActive(ctx, tenant, false)
}

// Status reports the job state reconciled with the persisted active flag:
// a chat marked active without a live job gets its job recreated.
func (s *Scheduler) Status(ctx context.Context, tenant models.TenantID) (State, error) {
	s.mu.Lock()
	j, ok := s.jobs[tenant]
	s.mu.Unlock()
	if ok {
		return j.state, nil
	}

	active, err := s.settings.Active(ctx, tenant)
	if err != nil {
		return StateNoJob, err
	}
	if !active {
		return StateNoJob, nil
	}
	// recovery: persisted flag says scanning but no job survived a restart
	if err := s.Start(ctx, tenant); err != nil {
		return StateNoJob, err
	}
	return StateRunning, nil
}

// Shutdown stops every job goroutine without touching persisted flags,
// used on process exit so active chats recover on the next start.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		j.cancel()
	}
	s.jobs = make(map[models.TenantID]*job)
}

// RecoverActive recreates jobs for every chat whose persisted flag says
// scanning is on. Called once at startup.
func (s *Scheduler) RecoverActive(ctx context.Context) error {
	tenants, err := s.settings.Tenants(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		active, err := s.settings.Active(ctx, t)
		if err != nil || !active {
			continue
		}
		if err := s.Start(ctx, t); err != nil {
			logger.Error("scheduler: recover chat=%s: %v", t, err)
		}
	}
	return nil
}
