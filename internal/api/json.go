package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pickplan/internal/opt"
)

// Problem is an RFC7807 body. Errors lists each validation problem when a
// scheduling batch was rejected.
type Problem struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Instance string   `json:"instance,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	sendProblem(w, Problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Instance: instance})
}

// writeInputProblem reports a rejected scheduling batch as 422.
func writeInputProblem(w http.ResponseWriter, title string, err error, instance string) {
	p := Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   http.StatusUnprocessableEntity,
		Detail:   err.Error(),
		Instance: instance,
	}
	var v *opt.ValidationError
	if errors.As(err, &v) {
		for _, e := range v.Problems {
			p.Errors = append(p.Errors, e.Error())
		}
	}
	sendProblem(w, p)
}

func sendProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
