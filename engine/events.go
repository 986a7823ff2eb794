package engine

const (
	EventPartCreated EventType = iota + 1
	EventPartUpdated
	EventPartDeleted
	EventStageConfirmed
	EventStageCancelled
	EventRouteChanged
	EventStageDictionaryChanged
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type PartCreatedEvent struct {
	PartID          string
	Product         string
	RouteTemplateID *int64
	Actor           string
}

type PartUpdatedEvent struct {
	PartID     string
	OldProduct string
	NewProduct string
	Actor      string
}

type PartDeletedEvent struct {
	PartID  string
	Product string
	Actor   string
}

type StageConfirmedEvent struct {
	PartID    string
	Product   string
	Stage     string
	Operator  string
	HistoryID int64
}

type StageCancelledEvent struct {
	PartID    string
	Product   string
	Stage     string
	NewStatus string
	Actor     string
	HistoryID int64
}

type RouteChangedEvent struct {
	TemplateID int64
	Name       string
	Action     string // "created", "updated", "deleted"
}

type StageDictionaryChangedEvent struct {
	StageID int64
	Name    string
	Action  string // "created", "deleted"
}

type ConnectionEvent struct {
	Detail string
}

// ProductEvent is implemented by payloads that change the progress of one or
// more products.
type ProductEvent interface {
	Products() []string
}

func (e PartCreatedEvent) Products() []string    { return []string{e.Product} }
func (e PartUpdatedEvent) Products() []string    { return []string{e.OldProduct, e.NewProduct} }
func (e PartDeletedEvent) Products() []string    { return []string{e.Product} }
func (e StageConfirmedEvent) Products() []string { return []string{e.Product} }
func (e StageCancelledEvent) Products() []string { return []string{e.Product} }
