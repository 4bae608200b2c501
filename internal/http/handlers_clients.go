package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"atelier/internal/core"
)

type projectRequest struct {
	MemberName string         `json:"memberName"`
	OrderType  core.OrderType `json:"orderType"`
	Price      core.Money     `json:"price"`
}

func (p projectRequest) project() core.Project {
	return core.Project{
		MemberName: sanitizeInput(p.MemberName),
		OrderType:  core.OrderType(strings.ToUpper(strings.TrimSpace(string(p.OrderType)))),
		Price:      p.Price,
	}
}

type clientRequest struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	WeddingDate string           `json:"weddingDate"`
	DueDate     string           `json:"dueDate"`
	Recommended string           `json:"recommended"`
	Notes       string           `json:"notes"`
	Projects    []projectRequest `json:"projects"`
}

func (req clientRequest) client(loc *time.Location) (core.Client, error) {
	c := core.Client{
		Name:        sanitizeInput(req.Name),
		Email:       sanitizeInput(req.Email),
		Phone:       sanitizeInput(req.Phone),
		Recommended: sanitizeInput(req.Recommended),
		Notes:       strings.TrimSpace(req.Notes),
	}
	var err error
	if c.WeddingDate, err = parseDate(req.WeddingDate, loc); err != nil {
		return core.Client{}, dateFieldError("weddingDate", err)
	}
	if c.DueDate, err = parseDate(req.DueDate, loc); err != nil {
		return core.Client{}, dateFieldError("dueDate", err)
	}
	for _, p := range req.Projects {
		c.Projects = append(c.Projects, p.project())
	}
	return c, nil
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.svc.Clients.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch clients")
		return
	}
	if clients == nil {
		clients = []core.Client{}
	}
	NewJSONResponse().Body(clients).Write(w)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	c, err := req.client(s.loc)
	if err != nil {
		ValidationFailed(err).Write(w)
		return
	}
	created, err := s.svc.Clients.Create(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create client")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid client ID").Write(w)
		return
	}
	c, err := s.svc.Clients.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch client")
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

// clientPatch builds a patch from the keys present in a JSON object, so that
// an explicit null or "" clears a date while an absent key keeps it.
func clientPatch(raw map[string]json.RawMessage, loc *time.Location) (core.ClientPatch, error) {
	var patch core.ClientPatch
	ve := map[string]string{}

	text := func(key string) *string {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		var s string
		if string(v) != "null" {
			if err := json.Unmarshal(v, &s); err != nil {
				ve[key] = "must be a string"
				return nil
			}
		}
		s = sanitizeInput(s)
		return &s
	}
	date := func(key string) **time.Time {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		var s string
		if string(v) != "null" {
			if err := json.Unmarshal(v, &s); err != nil {
				ve[key] = "must be a date string"
				return nil
			}
		}
		t, err := parseDate(s, loc)
		if err != nil {
			ve[key] = err.Error()
			return nil
		}
		return &t
	}

	patch.Name = text("name")
	patch.Email = text("email")
	patch.Phone = text("phone")
	patch.Recommended = text("recommended")
	patch.Notes = text("notes")
	patch.WeddingDate = date("weddingDate")
	patch.DueDate = date("dueDate")

	if len(ve) > 0 {
		return core.ClientPatch{}, &core.ValidationError{Fields: ve}
	}
	return patch, nil
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid client ID").Write(w)
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		writeDecodeError(w, err)
		return
	}
	patch, err := clientPatch(raw, s.loc)
	if err != nil {
		ValidationFailed(err).Write(w)
		return
	}
	updated, err := s.svc.Clients.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update client")
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

type financesResponse struct {
	core.FamilyFinances
	Owed core.Money `json:"owed"`
}

func (s *Server) handleClientFinances(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid client ID").Write(w)
		return
	}
	f, err := s.svc.Clients.Finances(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to calculate finances")
		return
	}
	NewJSONResponse().Body(financesResponse{FamilyFinances: f, Owed: f.Owed()}).Write(w)
}

func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid client ID").Write(w)
		return
	}
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	created, err := s.svc.Clients.AddProject(r.Context(), clientID, req.project())
	if err != nil {
		writeServiceError(w, r, err, "Failed to add project")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid project ID").Write(w)
		return
	}
	var req struct {
		IsPickedUp *bool `json:"isPickedUp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.IsPickedUp == nil {
		ValidationFailed(&core.ValidationError{Fields: map[string]string{"isPickedUp": "is required"}}).Write(w)
		return
	}
	p, err := s.svc.Clients.SetPickedUp(r.Context(), id, *req.IsPickedUp)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update project")
		return
	}
	NewJSONResponse().Body(p).Write(w)
}

func (s *Server) handleAddProjectExpense(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid project ID").Write(w)
		return
	}
	var req struct {
		Type   string     `json:"type"`
		Amount core.Money `json:"amount"`
		Date   string     `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	date, err := parseDateOrZero(req.Date, s.loc)
	if err != nil {
		ValidationFailed(dateFieldError("date", err)).Write(w)
		return
	}
	created, err := s.svc.Clients.AddProjectExpense(r.Context(), projectID, core.ProjectExpense{
		Type:   sanitizeInput(req.Type),
		Amount: req.Amount,
		Date:   date,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to add expense")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}
