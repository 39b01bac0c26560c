package card

import (
	"fmt"
	"sync"

	"thermostatui/internal/ha"
	"thermostatui/internal/interaction"

	"go.uber.org/zap"
)

// Dispatcher sends service commands to Home Assistant from a single worker
// so they reach HA in the order they were enqueued. Failures are logged and
// dropped; the next snapshot shows what actually happened.
type Dispatcher struct {
	client   ha.HAClient
	logger   *zap.Logger
	readOnly bool

	mu      sync.Mutex
	queue   []interaction.Command
	running bool

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher. In read-only mode commands are logged
// instead of sent.
func NewDispatcher(client ha.HAClient, logger *zap.Logger, readOnly bool) *Dispatcher {
	return &Dispatcher{
		client:   client,
		logger:   logger.Named("dispatcher"),
		readOnly: readOnly,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	go d.run()
}

// Enqueue appends cmds to the queue without waiting for them to be sent
func (d *Dispatcher) Enqueue(cmds ...interaction.Command) {
	if len(cmds) == 0 {
		return
	}

	d.mu.Lock()
	d.queue = append(d.queue, cmds...)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of commands not yet picked up by the worker
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stop halts the worker after the command in flight. Queued commands are
// discarded.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)

		d.mu.Lock()
		running := d.running
		dropped := len(d.queue)
		d.queue = nil
		d.mu.Unlock()

		if running {
			<-d.done
		}
		if dropped > 0 {
			d.logger.Warn("Discarded queued commands on stop", zap.Int("count", dropped))
		}
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		cmd, ok := d.next()
		if !ok {
			select {
			case <-d.wake:
				continue
			case <-d.quit:
				return
			}
		}

		select {
		case <-d.quit:
			return
		default:
		}

		if err := d.send(cmd); err != nil {
			d.logger.Error("Failed to send command",
				zap.String("command", fmt.Sprintf("%T", cmd)),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) next() (interaction.Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil, false
	}
	cmd := d.queue[0]
	d.queue = d.queue[1:]
	return cmd, true
}

func (d *Dispatcher) send(cmd interaction.Command) error {
	if d.readOnly {
		d.logger.Info("READ-ONLY: Would send command", zap.Any("command", cmd))
		return nil
	}

	switch c := cmd.(type) {
	case interaction.SetTargetTemperature:
		d.logger.Info("Setting target temperature",
			zap.String("entity_id", c.EntityID),
			zap.Float64("temperature", c.Temperature))
		return d.client.SetTemperature(c.EntityID, c.Temperature)

	case interaction.SetHVACMode:
		d.logger.Info("Setting HVAC mode",
			zap.String("entity_id", c.EntityID),
			zap.String("mode", c.Mode))
		return d.client.SetHVACMode(c.EntityID, c.Mode)

	case interaction.SetEcoTarget:
		d.logger.Info("Setting eco target",
			zap.String("entity_id", c.EntityID),
			zap.Float64("temperature", c.Temperature))
		return d.client.SetTempTargetTemperature(c.EntityID, c.Temperature)

	case interaction.RestoreSavedTarget:
		d.logger.Info("Restoring saved target", zap.String("entity_id", c.EntityID))
		return d.client.RestoreSavedTargetTemperature(c.EntityID)
	}

	return fmt.Errorf("unsupported command %T", cmd)
}
