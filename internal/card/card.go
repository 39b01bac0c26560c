// Package card hosts one climate card: it feeds Home Assistant snapshots and
// user events through the reducer and controller on a single goroutine,
// publishes the rendered tree, and hands service commands to a Dispatcher.
package card

import (
	"errors"
	"fmt"
	"sync"

	"thermostatui/internal/clock"
	"thermostatui/internal/config"
	"thermostatui/internal/ha"
	"thermostatui/internal/haptic"
	"thermostatui/internal/interaction"
	"thermostatui/internal/locale"
	"thermostatui/internal/overlay"
	"thermostatui/internal/render"
	"thermostatui/internal/widget"

	"go.uber.org/zap"
)

// ErrStopped is returned when a message is sent to a stopped card
var ErrStopped = errors.New("card stopped")

const inboxSize = 64

// View is what the card publishes after every message
type View struct {
	Tree        render.Tree       `json:"tree"`
	Widget      widget.State      `json:"widget"`
	Interaction interaction.State `json:"interaction"`
	// Snapshot is the last entity state the card reconciled. Treat it as
	// read-only.
	Snapshot *ha.State `json:"-"`
}

// MoreInfoHandler is called on the card goroutine when the user asks for
// the entity's detail view. It must not block.
type MoreInfoHandler func(entityID string, snap *ha.State)

// ChangeHandler is called on the card goroutine with every published View.
// It must not block.
type ChangeHandler func(View)

type snapshotMsg struct {
	entityID string
	state    *ha.State
}

type eventMsg struct {
	event interaction.Event
}

type reconfigureMsg struct {
	cfg *config.Card
}

type commitMsg struct{}

type resyncMsg struct{}

type statesMsg struct {
	states map[string]*ha.State
}

type barrierMsg struct {
	done chan struct{}
}

// Card is the runtime for one climate card
type Card struct {
	client     ha.HAClient
	logger     *zap.Logger
	clock      clock.Clock
	haptic     haptic.Feedback
	dispatcher *Dispatcher

	// Owned by the loop goroutine once started
	cfg         *config.Card
	formatter   locale.Formatter
	reducer     *widget.Reducer
	controller  *interaction.Controller
	commitTimer clock.Timer
	sub         ha.Subscription

	inbox    chan interface{}
	quit     chan struct{}
	done     chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once

	viewMu sync.RWMutex
	view   View

	handlersMu sync.RWMutex
	onChange   []ChangeHandler
	onMoreInfo []MoreInfoHandler
}

// New creates a card for cfg. Call Start to connect it to Home Assistant.
func New(client ha.HAClient, cfg *config.Card, logger *zap.Logger, readOnly bool) *Card {
	logger = logger.Named("card")
	c := &Card{
		client:     client,
		logger:     logger,
		clock:      clock.Real{},
		haptic:     haptic.Nop{},
		dispatcher: NewDispatcher(client, logger, readOnly),
		cfg:        cfg,
		formatter:  locale.New(cfg.Tag()),
		reducer:    widget.NewReducer(),
		inbox:      make(chan interface{}, inboxSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.controller = interaction.NewController(c.reducer, c.haptic, logger)
	c.publish()
	return c
}

// SetClock replaces the clock used for step commit timers. Call before Start.
func (c *Card) SetClock(clk clock.Clock) {
	c.clock = clk
}

// SetHaptic replaces the feedback primitive. Call before Start.
func (c *Card) SetHaptic(fb haptic.Feedback) {
	c.haptic = fb
	c.controller = interaction.NewController(c.reducer, fb, c.logger)
}

// OnChange registers h for every published View
func (c *Card) OnChange(h ChangeHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onChange = append(c.onChange, h)
}

// OnMoreInfo registers h for more-info requests
func (c *Card) OnMoreInfo(h MoreInfoHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onMoreInfo = append(c.onMoreInfo, h)
}

// Start subscribes to the configured entity, fetches its current state and
// starts the loop and the dispatcher
func (c *Card) Start() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return fmt.Errorf("card already started")
	}

	c.logger.Info("Starting card", zap.String("entity_id", c.cfg.Entity))

	if err := c.subscribe(c.cfg.Entity); err != nil {
		return err
	}
	c.started = true
	c.dispatcher.Start()
	go c.run()
	go c.fetch(c.cfg.Entity)
	return nil
}

// Stop ends the loop, cancels a pending step commit and unsubscribes
func (c *Card) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Stopping card")
		close(c.quit)

		c.startMu.Lock()
		started := c.started
		c.startMu.Unlock()
		if started {
			<-c.done
		}

		c.dispatcher.Stop()
		if c.commitTimer != nil {
			c.commitTimer.Stop()
		}
		if c.sub != nil {
			if err := c.sub.Unsubscribe(); err != nil {
				c.logger.Warn("Failed to unsubscribe", zap.Error(err))
			}
			c.sub = nil
		}
	})
}

// Dispatch queues a user event
func (c *Card) Dispatch(ev interaction.Event) error {
	if ev == nil {
		return fmt.Errorf("nil event")
	}
	return c.post(eventMsg{event: ev})
}

// Reconfigure swaps in a new card configuration
func (c *Card) Reconfigure(cfg *config.Card) error {
	if cfg == nil {
		return config.ErrMissingEntity
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.post(reconfigureMsg{cfg: cfg})
}

// Resync refetches the entity state, for use after a reconnect
func (c *Card) Resync() {
	if err := c.post(resyncMsg{}); err != nil {
		c.logger.Debug("Resync after stop ignored")
	}
}

// View returns the last published View
func (c *Card) View() View {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.view
}

// Tree returns the last published render tree
func (c *Card) Tree() render.Tree {
	return c.View().Tree
}

func (c *Card) post(m interface{}) error {
	select {
	case <-c.quit:
		return ErrStopped
	default:
	}

	select {
	case c.inbox <- m:
		return nil
	case <-c.quit:
		return ErrStopped
	}
}

// sync waits until every message posted before it has been processed
func (c *Card) sync() error {
	done := make(chan struct{})
	if err := c.post(barrierMsg{done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.quit:
		return ErrStopped
	}
}

func (c *Card) run() {
	defer close(c.done)

	for {
		select {
		case <-c.quit:
			return
		case m := <-c.inbox:
			c.handle(m)
		}
	}
}

func (c *Card) handle(m interface{}) {
	switch msg := m.(type) {
	case snapshotMsg:
		if msg.entityID != c.cfg.Entity {
			return
		}
		if !c.reducer.Reconcile(msg.state, c.cfg) {
			return
		}
	case statesMsg:
		if !c.reducer.ReconcileStates(msg.states, c.cfg) {
			return
		}
	case eventMsg:
		c.execute(c.controller.Handle(msg.event, c.cfg))
	case commitMsg:
		c.commitTimer = nil
		c.execute(c.controller.Handle(interaction.CommitStep{}, c.cfg))
	case reconfigureMsg:
		c.reconfigure(msg.cfg)
	case resyncMsg:
		go c.fetchAll()
		return
	case barrierMsg:
		close(msg.done)
		return
	default:
		c.logger.Warn("Ignoring unknown message", zap.String("type", fmt.Sprintf("%T", m)))
		return
	}
	c.publish()
}

func (c *Card) execute(cmds []interaction.Command) {
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case interaction.ScheduleStepCommit:
			c.scheduleCommit(cmd)
		case interaction.RequestMoreInfo:
			c.notifyMoreInfo(cmd.EntityID)
		case interaction.SetTargetTemperature:
			c.cancelCommit()
			c.dispatcher.Enqueue(cmd)
		default:
			c.dispatcher.Enqueue(cmd)
		}
	}
}

func (c *Card) scheduleCommit(cmd interaction.ScheduleStepCommit) {
	if c.commitTimer != nil {
		c.commitTimer.Reset(cmd.Delay)
		return
	}
	c.commitTimer = c.clock.AfterFunc(cmd.Delay, func() {
		if err := c.post(commitMsg{}); err != nil {
			c.logger.Debug("Step commit after stop ignored")
		}
	})
}

func (c *Card) cancelCommit() {
	if c.commitTimer != nil {
		c.commitTimer.Stop()
		c.commitTimer = nil
	}
}

func (c *Card) reconfigure(cfg *config.Card) {
	prevEntity := c.cfg.Entity
	prev := c.reducer.Snapshot()

	c.cfg = cfg
	c.formatter = locale.New(cfg.Tag())
	c.reducer.Reconfigure(cfg)

	if cfg.Entity == prevEntity {
		c.reducer.Reconcile(prev, cfg)
		c.logger.Info("Card reconfigured", zap.String("entity_id", cfg.Entity))
		return
	}

	c.logger.Info("Card switched entity",
		zap.String("from", prevEntity),
		zap.String("to", cfg.Entity))

	c.cancelCommit()
	c.reducer = widget.NewReducer()
	c.controller = interaction.NewController(c.reducer, c.haptic, c.logger)

	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe", zap.String("entity_id", prevEntity), zap.Error(err))
		}
		c.sub = nil
	}
	if err := c.subscribe(cfg.Entity); err != nil {
		c.logger.Error("Failed to subscribe", zap.String("entity_id", cfg.Entity), zap.Error(err))
		return
	}
	go c.fetch(cfg.Entity)
}

func (c *Card) subscribe(entityID string) error {
	sub, err := c.client.SubscribeStateChanges(entityID, c.handleStateChange)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", entityID, err)
	}
	c.sub = sub
	return nil
}

func (c *Card) handleStateChange(entityID string, oldState, newState *ha.State) {
	if newState == nil {
		return
	}
	if err := c.post(snapshotMsg{entityID: entityID, state: newState}); err != nil {
		c.logger.Debug("State change after stop ignored", zap.String("entity_id", entityID))
	}
}

// fetch runs off the loop so a slow request never stalls user events
func (c *Card) fetch(entityID string) {
	state, err := c.client.GetState(entityID)
	if err != nil {
		c.logger.Warn("Failed to get entity state", zap.String("entity_id", entityID), zap.Error(err))
		return
	}
	c.handleStateChange(entityID, nil, state)
}

// fetchAll reloads every entity state after a reconnect; the loop picks
// out the configured one
func (c *Card) fetchAll() {
	states, err := c.client.GetAllStates()
	if err != nil {
		c.logger.Warn("Failed to resync entity states", zap.Error(err))
		return
	}

	byID := make(map[string]*ha.State, len(states))
	for _, st := range states {
		byID[st.EntityID] = st
	}
	if err := c.post(statesMsg{states: byID}); err != nil {
		c.logger.Debug("Resync after stop ignored")
	}
}

func (c *Card) publish() {
	ws := c.reducer.State()
	is := c.controller.State()
	res := overlay.Resolve(ws, is, c.cfg)

	v := View{
		Tree:        render.Project(ws, is, res, c.cfg, c.formatter),
		Widget:      ws,
		Interaction: is,
		Snapshot:    c.reducer.Snapshot(),
	}

	c.viewMu.Lock()
	c.view = v
	c.viewMu.Unlock()

	c.handlersMu.RLock()
	handlers := append([]ChangeHandler(nil), c.onChange...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(v)
	}
}

func (c *Card) notifyMoreInfo(entityID string) {
	snap := c.reducer.Snapshot()
	c.logger.Debug("More info requested", zap.String("entity_id", entityID))

	c.handlersMu.RLock()
	handlers := append([]MoreInfoHandler(nil), c.onMoreInfo...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(entityID, snap)
	}
}
