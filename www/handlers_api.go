package www

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"parttracker/tracking"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeErr maps a tracking error onto an HTTP status.
func (h *Handlers) writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch tracking.Kind(err) {
	case "validation":
		code = http.StatusBadRequest
	case "conflict":
		code = http.StatusConflict
	case "not_found":
		code = http.StatusNotFound
	case "unauthorized":
		code = http.StatusUnauthorized
	case "forbidden":
		code = http.StatusForbidden
	default:
		log.Printf("api: %v", err)
	}
	h.jsonError(w, err.Error(), code)
}

// pathParam returns a decoded URL parameter. chi routes on RawPath when the
// request carries non-canonical escapes like %2F, and then yields the escaped
// form. Otherwise the value is already decoded and must not be unescaped again.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	msgOK := false
	if c := h.engine.MsgClient(); c != nil {
		msgOK = c.IsConnected()
	}
	dbOK := h.engine.DB().PingContext(r.Context()) == nil
	h.jsonOK(w, map[string]any{
		"status":       "ok",
		"database":     dbOK,
		"messaging":    msgOK,
		"live_clients": h.eventHub.ClientCount(),
	})
}

func (h *Handlers) apiListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Progress().ListProductProgress(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, productViews(list))
}

func (h *Handlers) apiProductProgress(w http.ResponseWriter, r *http.Request) {
	pp, err := h.engine.Progress().ProductProgress(r.Context(), pathParam(r, "product"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, productView(pp))
}

type partView struct {
	PartID          string  `json:"part_id"`
	Product         string  `json:"product_designation"`
	CurrentStatus   string  `json:"current_status"`
	RouteTemplateID *int64  `json:"route_template_id"`
	Completed       int     `json:"completed"`
	Total           int     `json:"total"`
	Percent         float64 `json:"percent"`
	State           string  `json:"state"`
}

func (h *Handlers) apiProductParts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.engine.Tracking().ListPartsWithProgress(r.Context(), pathParam(r, "product"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make([]partView, 0, len(rows))
	for _, row := range rows {
		out = append(out, partView{
			PartID:          row.PartID,
			Product:         row.ProductDesignation,
			CurrentStatus:   row.CurrentStatus,
			RouteTemplateID: row.RouteTemplateID,
			Completed:       row.Progress.Completed,
			Total:           row.Progress.Total,
			Percent:         row.Progress.Percent(),
			State:           string(row.State),
		})
	}
	h.jsonOK(w, out)
}

func (h *Handlers) apiPartStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Tracking().Status(r.Context(), pathParam(r, "partID"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]any{
		"part":      st.Part,
		"route":     st.Route,
		"available": st.Available,
		"completed": st.Progress.Completed,
		"total":     st.Progress.Total,
		"percent":   st.Progress.Percent(),
		"state":     st.State,
	})
}

func (h *Handlers) apiPartHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Tracking().History(r.Context(), pathParam(r, "partID"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiConfirmStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stage    string `json:"stage"`
		Operator string `json:"operator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Stage == "" {
		h.jsonError(w, "stage is required", http.StatusBadRequest)
		return
	}
	entry, err := h.engine.Tracking().ConfirmStage(r.Context(), h.actor(r), pathParam(r, "partID"), req.Stage, req.Operator)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, entry)
}
