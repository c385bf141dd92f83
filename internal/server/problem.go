package server

import (
	"net/http"

	"github.com/go-chi/render"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Status  int      `json:"status"`
	Detail  string   `json:"detail,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Render implements render.Renderer.
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

func problem(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, p *Problem) {
	if err := render.Render(w, r, p); err != nil {
		s.log.Error().Err(err).Msg("render problem")
	}
}
