package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.value)

			got, err := parseID(req, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Cohen","amount":"1800.50"}`))
		var p payload
		require.NoError(t, decodeJSON(req, &p))
		assert.Equal(t, "Cohen", p.Name)
		assert.Equal(t, int64(180050), p.Amount.Cents)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  "))
		var p payload
		assert.ErrorIs(t, decodeJSON(req, &p), errInvalidBody)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var p payload
		assert.ErrorIs(t, decodeJSON(req, &p), errInvalidBody)
	})

	t.Run("negative amount keeps amount error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":-5}`))
		var p payload
		err := decodeJSON(req, &p)
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
		assert.NotErrorIs(t, err, errInvalidBody)
	})

	t.Run("amount error names the field", func(t *testing.T) {
		type gown struct {
			Member string     `json:"memberName"`
			Price  core.Money `json:"price"`
		}
		type family struct {
			Name  string `json:"name"`
			Gowns []gown `json:"projects"`
		}

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Cohen","projects":[{"price":10},{"price":"ten"}]}`))
		var f family
		err := decodeJSON(req, &f)
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
		var ae *amountError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "projects[1].price", ae.field)

		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price":-1}`))
		var g gown
		require.ErrorAs(t, decodeJSON(req, &g), &ae)
		assert.Equal(t, "price", ae.field)

		rr := httptest.NewRecorder()
		writeDecodeError(rr, decodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price":"abc"}`)), &g))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"price"`)
		assert.NotContains(t, rr.Body.String(), `"amount"`)
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p payload
		assert.ErrorIs(t, decodeJSON(req, &p), errInvalidBody)
	})
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)

	got, err := parseDate("", loc)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDate("2024-06-15", loc)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, loc)))

	got, err = parseDate("2024-06-15T10:30:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)))

	_, err = parseDate("15/06/2024", loc)
	assert.ErrorIs(t, err, errInvalidDate)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Levi family", sanitizeInput("  Levi\x00 family\x07 "))
	assert.Equal(t, "line1\nline2", sanitizeInput("line1\nline2"))
}

func TestParseBoolParam(t *testing.T) {
	assert.True(t, parseBoolParam("", true))
	assert.False(t, parseBoolParam("false", true))
	assert.True(t, parseBoolParam("1", false))
	assert.False(t, parseBoolParam("maybe", false))
}

func TestFlexibleNumbers(t *testing.T) {
	var req struct {
		Bust     centimetres `json:"bust"`
		Waist    centimetres `json:"waist"`
		Hips     centimetres `json:"hips"`
		ClientID flexInt     `json:"clientId"`
		Duration flexInt     `json:"duration"`
	}
	body := `{"bust":"88,5","waist":70,"hips":"wide","clientId":"12","duration":45}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.InDelta(t, 88.5, float64(req.Bust), 1e-9)
	assert.InDelta(t, 70.0, float64(req.Waist), 1e-9)
	assert.True(t, math.IsNaN(float64(req.Hips)))
	assert.Equal(t, flexInt(12), req.ClientID)
	assert.Equal(t, flexInt(45), req.Duration)
}
