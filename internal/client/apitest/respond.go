package apitest

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

type envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Message    string             `json:"message,omitempty"`
	Error      *errorBody         `json:"error,omitempty"`
}

type errorBody struct {
	Code    any               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

func okMessage(w http.ResponseWriter, msg string) {
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Message: msg})
}

func okPage(w http.ResponseWriter, data any, p models.Pagination) {
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

func fail(w http.ResponseWriter, status int, code any, msg string) {
	writeEnvelope(w, status, envelope{Error: &errorBody{Code: code, Message: msg}})
}

func invalid(w http.ResponseWriter, fields map[string]string) {
	writeEnvelope(w, http.StatusBadRequest, envelope{Error: &errorBody{
		Code:    "validation_error",
		Message: "Validation failed",
		Fields:  fields,
	}})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "bad_request", "Malformed JSON body")
		return false
	}
	return true
}
