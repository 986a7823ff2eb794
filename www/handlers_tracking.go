package www

import (
	"encoding/json"
	"net/http"

	"parttracker/importer"
	"parttracker/tracking"
)

// --- Stages ---

func (h *Handlers) apiListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.engine.Tracking().ListStages(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, stages)
}

func (h *Handlers) apiCreateStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := h.engine.Tracking().AddStage(r.Context(), h.actor(r), req.Name)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonCreated(w, st)
}

func (h *Handlers) apiDeleteStage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Tracking().DeleteStage(r.Context(), h.actor(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

// --- Route templates ---

func (h *Handlers) apiListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.engine.Tracking().ListTemplates(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, routes)
}

func (h *Handlers) apiGetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	rt, err := h.engine.Tracking().GetTemplate(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, rt)
}

func (h *Handlers) apiCreateRoute(w http.ResponseWriter, r *http.Request) {
	var in tracking.RouteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rt, err := h.engine.Tracking().CreateTemplate(r.Context(), h.actor(r), in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonCreated(w, rt)
}

func (h *Handlers) apiUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in tracking.RouteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rt, err := h.engine.Tracking().UpdateTemplate(r.Context(), h.actor(r), id, in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, rt)
}

func (h *Handlers) apiDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Tracking().DeleteTemplate(r.Context(), h.actor(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

// --- Parts ---

func (h *Handlers) apiCreatePart(w http.ResponseWriter, r *http.Request) {
	var in tracking.PartInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := h.engine.Tracking().CreatePart(r.Context(), h.actor(r), in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonCreated(w, p)
}

func (h *Handlers) apiImportParts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		h.jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := importer.Parse(file)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	svc := h.engine.Tracking()
	templates, err := svc.ListTemplates(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	inputs, rejected := importer.Inputs(rows, templates)
	res, err := svc.ImportParts(r.Context(), h.actor(r), hdr.Filename, inputs)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	res.Reject(rejected...)
	h.jsonOK(w, res)
}

func (h *Handlers) apiUpdatePart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductDesignation string `json:"product_designation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	partID := pathParam(r, "partID")
	changed, err := h.engine.Tracking().UpdateDesignation(r.Context(), h.actor(r), partID, req.ProductDesignation)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"part_id": partID, "changed": changed})
}

func (h *Handlers) apiDeletePart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Tracking().DeletePart(r.Context(), h.actor(r), pathParam(r, "partID")); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiCancelStage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Tracking().CancelStage(r.Context(), h.actor(r), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, res)
}

// apiPartQR returns the scan link to encode and a download file name. The
// label itself is rendered by the client.
func (h *Handlers) apiPartQR(w http.ResponseWriter, r *http.Request) {
	partID := pathParam(r, "partID")
	regenerated, err := h.engine.Tracking().RecordQRGenerated(r.Context(), h.actor(r), partID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]any{
		"part_id":     partID,
		"url":         tracking.ScanURL(h.engine.AppConfig().Web.PublicURL, partID),
		"filename":    "qr_" + tracking.SafeFileName(partID) + ".png",
		"regenerated": regenerated,
	})
}
