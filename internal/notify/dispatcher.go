package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fentz26/taskdesk/internal/models"
)

// Dispatcher drains a bus subscription and sends each event as a chat message.
type Dispatcher struct {
	bus       *Bus
	messenger Messenger
	timeout   time.Duration

	ch     chan models.Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. timeout bounds each send; zero means none.
func NewDispatcher(bus *Bus, m Messenger, timeout time.Duration) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bus:       bus,
		messenger: m,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the bus and begins delivering.
func (d *Dispatcher) Start() {
	d.ch = d.bus.Subscribe()
	d.wg.Add(1)
	go d.loop()
	log.Printf("[notify] dispatcher started (%s)", d.messenger.Name())
}

// Stop unsubscribes and waits for the loop to exit. Events still queued are
// delivered first.
func (d *Dispatcher) Stop() {
	d.bus.Unsubscribe(d.ch)
	d.wg.Wait()
	d.cancel()
	log.Println("[notify] dispatcher stopped")
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for ev := range d.ch {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev models.Event) {
	ctx := d.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	report := DeliverAll(ctx, d.messenger, []Message{RenderEvent(ev)})
	if err := report.Err(); err != nil {
		log.Printf("[notify] %s for task %d: %v", ev.Kind, ev.TaskID, err)
	}
}
