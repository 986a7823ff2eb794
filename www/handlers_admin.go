package www

import (
	"encoding/json"
	"net/http"
	"strconv"

	"parttracker/tracking"
)

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage > 200 {
		perPage = 200
	}
	res, err := h.engine.Tracking().AuditLog(r.Context(), page, perPage)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, res)
}

// apiOperatorReport counts confirmations per operator. from and to are
// inclusive calendar days.
func (h *Handlers) apiOperatorReport(w http.ResponseWriter, r *http.Request) {
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		h.jsonError(w, "invalid from date", http.StatusBadRequest)
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		h.jsonError(w, "invalid to date", http.StatusBadRequest)
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	stats, err := h.engine.Tracking().OperatorPerformance(r.Context(), from, to)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, stats)
}

// --- Users ---

func (h *Handlers) apiListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.Tracking().ListUsers(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, users)
}

func (h *Handlers) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var in tracking.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	u, err := h.engine.Tracking().CreateUser(r.Context(), h.actor(r), in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonCreated(w, u)
}

func (h *Handlers) apiUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in tracking.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	u, err := h.engine.Tracking().UpdateUser(r.Context(), h.actor(r), id, in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, u)
}

func (h *Handlers) apiDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Tracking().DeleteUser(r.Context(), h.actor(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}
