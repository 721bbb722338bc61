package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-console/internal/pkg/httputil"
	"github.com/ignite/lead-console/internal/service/lead"
)

// ListLeads returns a page of leads for one account.
// GET /api/accounts/{accountID}/leads?stage=&form=&search=&limit=&offset=
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	q := r.URL.Query()
	filter := lead.ListFilter{
		Stage:    q.Get("stage"),
		FormName: q.Get("form"),
		Search:   q.Get("search"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	leads, total, err := h.leads.List(r.Context(), accountID, filter)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"leads": leads,
		"total": total,
	})
}

// GetLead returns a single lead.
// GET /api/accounts/{accountID}/leads/{leadID}
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	leadID := chi.URLParam(r, "leadID")

	l, err := h.leads.Get(r.Context(), accountID, leadID)
	if err == lead.ErrNotFound {
		httputil.NotFound(w, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, l)
}

// CreateLead creates a single lead via the manual path, which applies the
// stage default when the field is blank.
// POST /api/accounts/{accountID}/leads
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var input lead.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	l, err := h.leads.Create(r.Context(), accountID, input)
	if err == lead.ErrNameMissing {
		httputil.BadRequest(w, "name is required")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, l)
}

// UpdateLead patches mutable lead fields. Absent JSON fields are untouched.
// PUT /api/accounts/{accountID}/leads/{leadID}
func (h *Handlers) UpdateLead(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	leadID := chi.URLParam(r, "leadID")

	var u struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		WhatsApp *string `json:"whatsapp"`
		Stage    *string `json:"stage"`
		Owner    *string `json:"owner"`
		Labels   *string `json:"labels"`
		Channel  *string `json:"channel"`
		Source   *string `json:"source"`
	}
	if !httputil.Decode(w, r, &u) {
		return
	}

	err := h.leads.Update(r.Context(), accountID, leadID, lead.UpdateFields{
		Name: u.Name, Email: u.Email, Phone: u.Phone, WhatsApp: u.WhatsApp,
		Stage: u.Stage, Owner: u.Owner, Labels: u.Labels,
		Channel: u.Channel, Source: u.Source,
	})
	if err == lead.ErrNotFound {
		httputil.NotFound(w, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// DeleteLead removes a lead.
// DELETE /api/accounts/{accountID}/leads/{leadID}
func (h *Handlers) DeleteLead(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	leadID := chi.URLParam(r, "leadID")

	err := h.leads.Delete(r.Context(), accountID, leadID)
	if err == lead.ErrNotFound {
		httputil.NotFound(w, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
