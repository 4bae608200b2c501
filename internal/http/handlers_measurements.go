package http

import (
	"bytes"
	"math"
	"net/http"
	"strconv"
	"strings"

	"atelier/internal/core"
)

// centimetres accepts a JSON number or a numeric string. Anything else
// decodes to NaN and is rejected by measurement validation.
type centimetres float64

func (c *centimetres) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		v = math.NaN()
	}
	*c = centimetres(v)
	return nil
}

type measurementRequest struct {
	ProjectID      int64       `json:"projectId"`
	Date           string      `json:"date"`
	Bust           centimetres `json:"bust"`
	Waist          centimetres `json:"waist"`
	Hips           centimetres `json:"hips"`
	ShirtLength    centimetres `json:"shirtLength"`
	SkirtLength    centimetres `json:"skirtLength"`
	SleeveLength   centimetres `json:"sleeveLength"`
	SleeveWidth    centimetres `json:"sleeveWidth"`
	ShoulderToBust centimetres `json:"shoulderToBust"`
	Notes          string      `json:"notes"`
}

func (s *Server) measurement(req measurementRequest) (core.Measurement, error) {
	date, err := parseDateOrZero(req.Date, s.loc)
	if err != nil {
		return core.Measurement{}, dateFieldError("date", err)
	}
	return core.Measurement{
		ProjectID:      req.ProjectID,
		Date:           date,
		Bust:           float64(req.Bust),
		Waist:          float64(req.Waist),
		Hips:           float64(req.Hips),
		ShirtLength:    float64(req.ShirtLength),
		SkirtLength:    float64(req.SkirtLength),
		SleeveLength:   float64(req.SleeveLength),
		SleeveWidth:    float64(req.SleeveWidth),
		ShoulderToBust: float64(req.ShoulderToBust),
		Notes:          strings.TrimSpace(req.Notes),
	}, nil
}

func (s *Server) handleCreateMeasurement(w http.ResponseWriter, r *http.Request) {
	var req measurementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	m, err := s.measurement(req)
	if err != nil {
		ValidationFailed(err).Write(w)
		return
	}
	created, err := s.svc.Clients.CreateMeasurement(r.Context(), m)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save measurements")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid measurement ID").Write(w)
		return
	}
	var req measurementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	m, err := s.measurement(req)
	if err != nil {
		ValidationFailed(err).Write(w)
		return
	}
	updated, err := s.svc.Clients.UpdateMeasurement(r.Context(), id, m)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update measurements")
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid measurement ID").Write(w)
		return
	}
	if err := s.svc.Clients.DeleteMeasurement(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Failed to delete measurements")
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
