package ven

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openadr-ven/client/errors"
	"github.com/openadr-ven/client/logger"
	"golang.org/x/time/rate"
)

// Config is the full configuration surface for a Client: identity,
// transport endpoint, polling cadence, and the security material used to
// establish mTLS with the VTN.
type Config struct {
	VENName          string `yaml:"ven_name"`
	VENID            string `yaml:"ven_id"`
	VTNURL           string `yaml:"vtn_url"`
	ProfileName      string `yaml:"profile_name"`
	TransportName    string `yaml:"transport_name"`
	TransportAddress string `yaml:"transport_address"`
	HTTPPullModel    bool   `yaml:"http_pull_model"`
	XMLSignature     bool   `yaml:"xml_signature"`
	ReportOnly       bool   `yaml:"report_only"`

	PollFrequency time.Duration `yaml:"poll_frequency"` // clamped to 24h, defaulting from the VTN's oadrCreatedPartyRegistration response
	AllowJitter   bool          `yaml:"allow_jitter"`

	EventStatusLogPeriod time.Duration `yaml:"event_status_log_period"`
	EventsCleanUpPeriod  time.Duration `yaml:"events_cleanup_period"`

	CertPath      string `yaml:"cert_path,omitempty"`
	KeyPath       string `yaml:"key_path,omitempty"`
	CAFile        string `yaml:"ca_file,omitempty"`
	Passphrase    string `yaml:"-"` // never serialized
	CheckHostname bool   `yaml:"check_hostname"`
}

func (c Config) withDefaults() Config {
	if c.PollFrequency <= 0 {
		c.PollFrequency = 10 * time.Second
	}
	if c.PollFrequency > 24*time.Hour {
		c.PollFrequency = 24 * time.Hour
	}
	if c.EventStatusLogPeriod <= 0 {
		c.EventStatusLogPeriod = 5 * time.Minute
	}
	if c.EventsCleanUpPeriod <= 0 {
		c.EventsCleanUpPeriod = 10 * time.Minute
	}
	return c
}

// Client is the single dispatcher/state owner (C10) coordinating
// registration, polling, reporting, and event tracking. All state
// mutation happens under mu, whether triggered by the poll loop, a
// scheduled job, or a direct API call — this is the Go rendering of the
// protocol's single-logical-task-loop requirement.
type Client struct {
	mu sync.Mutex

	cfg   Config
	codec Codec
	tp    Transport
	sched Scheduler
	cron  CronHelper
	clock Clock

	hooks    Hooks
	handlers EventHandlers

	registrationID string

	reports         []*Report
	reportCallbacks map[reportKey]any // IncrementalSampler | SeriesSampler | WindowedSampler
	reportRequests  []*ActiveReportRequest
	incompleteReports map[string]*OutgoingReport
	lastReportValue   map[reportKey]float64 // last value sent, for on-change filtering

	pendingReports chan *OutgoingReport

	receivedEvents  map[string]*Event
	respondedEvents map[string]OptType

	opts []Opt

	pollLimiter *rate.Limiter
	pumpLimiter *rate.Limiter

	pollJob    JobHandle
	statusJob  JobHandle
	cleanupJob JobHandle

	pumpCancel context.CancelFunc
	pumpDone   chan struct{}

	running bool
}

const pendingReportQueueCapacity = 256

// New constructs a Client. Scheduler and Clock are injected dependencies,
// not global singletons, so tests can substitute a fake scheduler and a
// controlled clock.
func New(cfg Config, codec Codec, tp Transport, sched Scheduler, cron CronHelper, clock Clock) *Client {
	if clock == nil {
		clock = time.Now
	}
	return &Client{
		cfg:               cfg.withDefaults(),
		codec:             codec,
		tp:                tp,
		sched:             sched,
		cron:              cron,
		clock:             clock,
		reportCallbacks:   make(map[reportKey]any),
		incompleteReports: make(map[string]*OutgoingReport),
		lastReportValue:   make(map[reportKey]float64),
		pendingReports:    make(chan *OutgoingReport, pendingReportQueueCapacity),
		receivedEvents:    make(map[string]*Event),
		respondedEvents:   make(map[string]OptType),
		pollLimiter:       rate.NewLimiter(rate.Every(time.Second), 5),
		pumpLimiter:       rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
}

// SetHooks installs typed listener points. Call before Run.
func (c *Client) SetHooks(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

// SetEventHandlers installs the on_event/on_update_event callbacks as a
// single value, replacing reassignable attributes with a set-once pair.
func (c *Client) SetEventHandlers(h EventHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// generateID returns a fresh identifier for request/opt/report ids,
// replacing the reference implementation's vanity-id scheme with a
// standard UUID.
func generateID() string {
	return uuid.NewString()
}

// Run performs the registration handshake, starts the report pump, syncs
// any already-known events, polls once immediately, then schedules the
// recurring poll/status-log/cleanup jobs. It blocks until ctx is
// cancelled or Stop is called.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("ven: client already running")
	}
	c.running = true
	c.mu.Unlock()

	c.hooks.runBeforeRegister(ctx)

	if err := c.queryRegistration(ctx); err != nil {
		logger.Warnw("query registration failed, attempting create", logger.FieldError, err.Error())
	}

	if err := c.createPartyRegistration(ctx); err != nil {
		return errors.Wrap(err, "ven: fatal registration failure")
	}

	c.mu.Lock()
	registrationID := c.registrationID
	c.mu.Unlock()
	if registrationID == "" {
		return errors.New("ven: VTN did not return a registration_id")
	}
	c.hooks.runAfterRegister(ctx, registrationID)

	if err := c.registerReports(ctx); err != nil {
		logger.Errorw("register_reports failed", logger.FieldError, err.Error())
	}

	c.startReportPump(ctx)

	if err := c.poll(ctx); err != nil {
		logger.Errorw("initial poll failed", logger.FieldError, err.Error())
	}

	c.schedulePeriodicJobs(ctx)

	<-ctx.Done()
	c.Stop(context.Background())
	return ctx.Err()
}

// Stop tears down scheduled jobs and the report pump, and clears
// registration-scoped state. Safe to call even if Run never completed
// registration.
func (c *Client) Stop(ctx context.Context) {
	c.mu.Lock()
	running := c.running
	c.running = false
	pollJob, statusJob, cleanupJob := c.pollJob, c.statusJob, c.cleanupJob
	c.pollJob, c.statusJob, c.cleanupJob = nil, nil, nil
	pumpCancel := c.pumpCancel
	pumpDone := c.pumpDone
	c.mu.Unlock()

	if !running {
		return
	}

	for _, j := range []JobHandle{pollJob, statusJob, cleanupJob} {
		if j != nil {
			j.Cancel()
		}
	}
	if c.sched != nil {
		c.sched.Shutdown()
	}
	if pumpCancel != nil {
		pumpCancel()
	}
	if pumpDone != nil {
		select {
		case <-pumpDone:
		case <-time.After(time.Second):
		}
	}
}

// jitterOffset derives a sub-second poll-ticker offset from venID so that
// many VEN instances started at the same moment (the same deploy, the
// same restart storm) don't all poll the VTN in lockstep. It reserves a
// venID-dependent number of tokens against limiter — a limiter already
// sized for the poll loop's own rate limiting — and folds the resulting
// reservation delay into one second.
func jitterOffset(limiter *rate.Limiter, venID string, now time.Time) time.Duration {
	if limiter == nil {
		return 0
	}
	seed := 1
	for _, b := range []byte(venID) {
		seed += int(b)
	}
	n := seed%limiter.Burst() + 1
	r := limiter.ReserveN(now, n)
	delay := r.DelayFrom(now) % time.Second
	r.Cancel()
	return delay
}

func (c *Client) schedulePeriodicJobs(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		return
	}
	pollInterval := c.cfg.PollFrequency
	if c.cfg.AllowJitter {
		pollInterval += jitterOffset(c.pollLimiter, c.cfg.VENID, c.clock())
	}
	c.pollJob = c.sched.AddInterval(pollInterval, func(jobCtx context.Context) {
		if err := c.poll(jobCtx); err != nil {
			logger.Errorw("poll failed", logger.FieldError, err.Error())
		}
	})
	c.statusJob = c.sched.AddInterval(c.cfg.EventStatusLogPeriod, func(jobCtx context.Context) {
		c.eventStatusLog(jobCtx)
	})
	c.cleanupJob = c.sched.AddInterval(c.cfg.EventsCleanUpPeriod, func(jobCtx context.Context) {
		c.eventCleanup(jobCtx)
	})
}

// Reconfigure applies new poll/status/cleanup cadences to a running
// client without a restart — cancels the affected jobs and reschedules
// them at the new intervals, so a hot-reloaded config file can take
// effect immediately. Zero durations leave the corresponding cadence
// unchanged. A non-running client just updates cfg for the next Run.
func (c *Client) Reconfigure(pollFrequency, eventStatusLogPeriod, eventsCleanUpPeriod time.Duration) {
	c.mu.Lock()
	if pollFrequency > 0 {
		c.cfg.PollFrequency = pollFrequency
	}
	if eventStatusLogPeriod > 0 {
		c.cfg.EventStatusLogPeriod = eventStatusLogPeriod
	}
	if eventsCleanUpPeriod > 0 {
		c.cfg.EventsCleanUpPeriod = eventsCleanUpPeriod
	}
	c.cfg = c.cfg.withDefaults()
	running := c.running
	pollJob, statusJob, cleanupJob := c.pollJob, c.statusJob, c.cleanupJob
	c.mu.Unlock()

	if !running {
		return
	}
	for _, j := range []JobHandle{pollJob, statusJob, cleanupJob} {
		if j != nil {
			j.Cancel()
		}
	}
	logger.Infow("reconfigured periodic cadences",
		"poll_frequency", c.cfg.PollFrequency,
		"event_status_log_period", c.cfg.EventStatusLogPeriod,
		"events_cleanup_period", c.cfg.EventsCleanUpPeriod)
	c.schedulePeriodicJobs(context.Background())
}
