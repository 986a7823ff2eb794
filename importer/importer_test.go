package importer

import (
	"testing"

	"parttracker/store"
)

func TestInputsResolvesRoutes(t *testing.T) {
	templates := []*store.RouteTemplate{{ID: 7, Name: "Main"}}
	rows := []Row{
		{Line: 2, PartID: "P-1", Product: "Gear", Route: "main"},
		{Line: 3, PartID: "P-2", Product: "Gear"},
		{Line: 4, PartID: "P-3", Product: "Gear", Route: "Other"},
	}
	inputs, rejected := Inputs(rows, templates)
	if len(inputs) != 2 {
		t.Fatalf("inputs = %+v, want 2", inputs)
	}
	if inputs[0].RouteTemplateID == nil || *inputs[0].RouteTemplateID != 7 || inputs[0].Line != 2 {
		t.Errorf("input 0 = %+v", inputs[0])
	}
	if inputs[1].RouteTemplateID != nil {
		t.Error("row without route should use the default")
	}
	if len(rejected) != 1 || rejected[0].Row != 4 || rejected[0].PartID != "P-3" {
		t.Errorf("rejected = %+v", rejected)
	}
}
