package engine

import (
	"context"

	"parttracker/messaging"
)

func (e *Engine) wireEventHandlers() {
	// Progress cache: anything touching a part's history or designation
	On(e.Events, func(ev ProductEvent) {
		e.progress.Invalidate(ev.Products()...)
	}, EventPartCreated, EventPartUpdated, EventPartDeleted, EventStageConfirmed, EventStageCancelled)

	// Route edits change the denominator of every product routed by the template
	On(e.Events, func(ev RouteChangedEvent) {
		e.logFn("engine: route %d %q %s", ev.TemplateID, ev.Name, ev.Action)
		e.progress.Flush()
	}, EventRouteChanged)

	On(e.Events, func(ev StageDictionaryChangedEvent) {
		e.logFn("engine: stage %d %q %s", ev.StageID, ev.Name, ev.Action)
	}, EventStageDictionaryChanged)

	On(e.Events, func(ev StageConfirmedEvent) {
		e.logFn("engine: part %s stage %q confirmed by %s", ev.PartID, ev.Stage, ev.Operator)
		e.publish(messaging.TypePartStageConfirmed, messaging.PartEvent{
			PartID:    ev.PartID,
			Product:   ev.Product,
			Stage:     ev.Stage,
			Status:    ev.Stage,
			Operator:  ev.Operator,
			HistoryID: ev.HistoryID,
		})
	}, EventStageConfirmed)

	On(e.Events, func(ev StageCancelledEvent) {
		e.logFn("engine: part %s stage %q cancelled by %s, status now %q", ev.PartID, ev.Stage, ev.Actor, ev.NewStatus)
		e.publish(messaging.TypePartStageCancelled, messaging.PartEvent{
			PartID:    ev.PartID,
			Product:   ev.Product,
			Stage:     ev.Stage,
			Status:    ev.NewStatus,
			HistoryID: ev.HistoryID,
			Actor:     ev.Actor,
		})
	}, EventStageCancelled)

	On(e.Events, func(ev PartCreatedEvent) {
		e.publish(messaging.TypePartCreated, messaging.PartEvent{
			PartID:          ev.PartID,
			Product:         ev.Product,
			RouteTemplateID: ev.RouteTemplateID,
			Actor:           ev.Actor,
		})
	}, EventPartCreated)

	On(e.Events, func(ev PartUpdatedEvent) {
		e.publish(messaging.TypePartUpdated, messaging.PartEvent{
			PartID:          ev.PartID,
			Product:         ev.NewProduct,
			PreviousProduct: ev.OldProduct,
			Actor:           ev.Actor,
		})
	}, EventPartUpdated)

	On(e.Events, func(ev PartDeletedEvent) {
		e.logFn("engine: part %s deleted by %s", ev.PartID, ev.Actor)
		e.publish(messaging.TypePartDeleted, messaging.PartEvent{
			PartID:  ev.PartID,
			Product: ev.Product,
			Actor:   ev.Actor,
		})
	}, EventPartDeleted)

	On(e.Events, func(ev ConnectionEvent) {
		e.logFn("engine: %s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}

// publish enqueues a part event for the outbox drainer. The drainer keys
// Kafka messages by part id so one part's events stay ordered.
func (e *Engine) publish(msgType string, ev messaging.PartEvent) {
	if e.cfg == nil || !e.cfg.Messaging.Enabled {
		return
	}
	env, err := messaging.NewEnvelope(msgType, e.cfg.Messaging.StationID, ev)
	if err != nil {
		e.logFn("engine: build %s envelope: %v", msgType, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode %s envelope: %v", msgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(context.Background(), e.cfg.Messaging.PartsTopic, data, msgType, ev.PartID); err != nil {
		e.logFn("engine: enqueue %s for %s: %v", msgType, ev.PartID, err)
	}
}
