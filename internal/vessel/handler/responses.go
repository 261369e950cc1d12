package handler

import (
	"net/http"

	"marina/internal/vessel/models"
	"marina/pkg/platform/httputil"
)

// Response is the JSON form of a vessel.
type Response struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Length float64        `json:"length"`
	Loads  []httputil.Ref `json:"loads"`
	Owner  string         `json:"owner"`
	Self   string         `json:"self"`
}

func (h *Handler) toResponse(r *http.Request, v *models.Vessel) Response {
	loads := make([]httputil.Ref, 0, len(v.Loads))
	for _, id := range v.Loads {
		loads = append(loads, h.links.Ref(r, "loads", id))
	}
	return Response{
		ID:     v.ID,
		Name:   v.Name,
		Type:   v.Type,
		Length: v.Length,
		Loads:  loads,
		Owner:  v.Owner,
		Self:   h.links.Self(r, "boats", v.ID),
	}
}
