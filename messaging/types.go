package messaging

// PartEvent is the payload of every part.* message.
type PartEvent struct {
	PartID          string `json:"part_id"`
	Product         string `json:"product"`
	PreviousProduct string `json:"previous_product,omitempty"`
	RouteTemplateID *int64 `json:"route_template_id,omitempty"`
	Stage           string `json:"stage,omitempty"`
	Status          string `json:"status,omitempty"`
	Operator        string `json:"operator,omitempty"`
	HistoryID       int64  `json:"history_id,omitempty"`
	Actor           string `json:"actor,omitempty"`
}
