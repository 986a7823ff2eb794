package engine

// trackingEmitter bridges the tracking package's emitter interface to the EventBus.
type trackingEmitter struct {
	bus *EventBus
}

func (e *trackingEmitter) EmitPartCreated(partID, product string, routeTemplateID *int64, actor string) {
	e.bus.Emit(Event{Type: EventPartCreated, Payload: PartCreatedEvent{
		PartID:          partID,
		Product:         product,
		RouteTemplateID: routeTemplateID,
		Actor:           actor,
	}})
}

func (e *trackingEmitter) EmitPartUpdated(partID, oldProduct, newProduct, actor string) {
	e.bus.Emit(Event{Type: EventPartUpdated, Payload: PartUpdatedEvent{
		PartID:     partID,
		OldProduct: oldProduct,
		NewProduct: newProduct,
		Actor:      actor,
	}})
}

func (e *trackingEmitter) EmitPartDeleted(partID, product, actor string) {
	e.bus.Emit(Event{Type: EventPartDeleted, Payload: PartDeletedEvent{
		PartID:  partID,
		Product: product,
		Actor:   actor,
	}})
}

func (e *trackingEmitter) EmitStageConfirmed(partID, product, stage, operator string, historyID int64) {
	e.bus.Emit(Event{Type: EventStageConfirmed, Payload: StageConfirmedEvent{
		PartID:    partID,
		Product:   product,
		Stage:     stage,
		Operator:  operator,
		HistoryID: historyID,
	}})
}

func (e *trackingEmitter) EmitStageCancelled(partID, product, stage, newStatus, actor string, historyID int64) {
	e.bus.Emit(Event{Type: EventStageCancelled, Payload: StageCancelledEvent{
		PartID:    partID,
		Product:   product,
		Stage:     stage,
		NewStatus: newStatus,
		Actor:     actor,
		HistoryID: historyID,
	}})
}

func (e *trackingEmitter) EmitRouteChanged(templateID int64, name, action string) {
	e.bus.Emit(Event{Type: EventRouteChanged, Payload: RouteChangedEvent{
		TemplateID: templateID,
		Name:       name,
		Action:     action,
	}})
}

func (e *trackingEmitter) EmitStageDictionaryChanged(stageID int64, name, action string) {
	e.bus.Emit(Event{Type: EventStageDictionaryChanged, Payload: StageDictionaryChangedEvent{
		StageID: stageID,
		Name:    name,
		Action:  action,
	}})
}
