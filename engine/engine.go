package engine

import (
	"log"
	"time"

	"parttracker/config"
	"parttracker/messaging"
	"parttracker/prodcache"
	"parttracker/store"
	"parttracker/tracking"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig *config.Config
	DB        *store.DB
	Progress  *prodcache.Manager
	MsgClient *messaging.Client
	LogFunc   LogFunc
}

type Engine struct {
	cfg          *config.Config
	db           *store.DB
	tracking     *tracking.Service
	progress     *prodcache.Manager
	msgClient    *messaging.Client
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:       c.AppConfig,
		db:        c.DB,
		progress:  c.Progress,
		msgClient: c.MsgClient,
		Events:    NewEventBus(),
		logFn:     logFn,
		stopChan:  make(chan struct{}),
	}
	e.tracking = tracking.NewService(c.DB, &trackingEmitter{bus: e.Events})
	if name := c.AppConfig.Tracking.UnknownOperator; name != "" {
		e.tracking.SetUnknownOperator(name)
	}
	if e.progress == nil {
		e.progress = prodcache.NewManager(e.tracking, nil, 0)
	}
	return e
}

// SetProgress replaces the progress reader, typically with a Redis-backed one.
// Call before Start.
func (e *Engine) SetProgress(m *prodcache.Manager) { e.progress = m }

func (e *Engine) Start() {
	e.wireEventHandlers()

	if e.msgClient != nil {
		e.checkConnectionStatus()
		go e.connectionHealthLoop()
	}

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                { return e.db }
func (e *Engine) AppConfig() *config.Config    { return e.cfg }
func (e *Engine) Tracking() *tracking.Service  { return e.tracking }
func (e *Engine) Progress() *prodcache.Manager { return e.progress }
func (e *Engine) MsgClient() *messaging.Client { return e.msgClient }

func (e *Engine) checkConnectionStatus() {
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
