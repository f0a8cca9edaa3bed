package reminder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fentz26/taskdesk/internal/notify"
	"github.com/fentz26/taskdesk/internal/store"
)

// Report describes one sweep.
type Report struct {
	At        time.Time        `json:"at"`
	Due       int              `json:"due"`
	Delivered int              `json:"delivered"`
	Failures  []notify.Failure `json:"-"`
}

// Sweeper finds open tasks whose deadline day has come and reminds the
// conversation each one belongs to. It never changes task state.
type Sweeper struct {
	store     *store.Store
	messenger notify.Messenger
	config    *Config
	loc       *time.Location
	now       func() time.Time

	mu   sync.Mutex
	last *Report

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sweeper. Days are read in loc.
func New(s *store.Store, m notify.Messenger, cfg *Config, loc *time.Location) *Sweeper {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if loc == nil {
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		store:     s,
		messenger: m,
		config:    cfg,
		loc:       loc,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start runs one sweep right away and then one per interval.
func (sw *Sweeper) Start() {
	sw.wg.Add(1)
	go sw.loop()
	log.Printf("[reminder] sweeper started (every %s)", sw.config.Interval)
}

// Stop gracefully stops the sweeper.
func (sw *Sweeper) Stop() {
	sw.cancel()
	sw.wg.Wait()
	log.Println("[reminder] sweeper stopped")
}

func (sw *Sweeper) loop() {
	defer sw.wg.Done()

	interval := sw.config.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sw.tick()
	for {
		select {
		case <-sw.ctx.Done():
			return
		case <-ticker.C:
			sw.tick()
		}
	}
}

func (sw *Sweeper) tick() {
	report, err := sw.Sweep(sw.ctx, sw.now())
	if err != nil {
		log.Printf("[reminder] sweep failed: %v", err)
		return
	}
	if report.Due > 0 {
		log.Printf("[reminder] sweep sent %d of %d reminders", report.Delivered, report.Due)
	}
}

// Sweep sends one reminder per open task due on or before the day of now.
// Delivery failures are logged and reported; only a failed query is an error.
func (sw *Sweeper) Sweep(ctx context.Context, now time.Time) (*Report, error) {
	now = now.In(sw.loc)

	tasks, err := sw.store.DueTasks(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}

	msgs := make([]notify.Message, 0, len(tasks))
	for _, task := range tasks {
		msgs = append(msgs, notify.RenderReminder(task, now))
	}

	delivery := notify.DeliverAll(ctx, notify.WithTimeout(sw.messenger, sw.config.SendTimeout), msgs)
	for _, f := range delivery.Failures {
		log.Printf("[reminder] task %d to chat %d: %v", f.Message.TaskID, f.Message.ChatID, f.Err)
	}

	report := &Report{
		At:        now,
		Due:       len(tasks),
		Delivered: delivery.Delivered,
		Failures:  delivery.Failures,
	}

	sw.mu.Lock()
	sw.last = report
	sw.mu.Unlock()
	return report, nil
}

// LastReport returns the most recent sweep report, or nil before the first sweep.
func (sw *Sweeper) LastReport() *Report {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.last
}
