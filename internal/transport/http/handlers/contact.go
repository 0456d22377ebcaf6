package http_handlers

import (
	"net/http"

	"github.com/miharyjoe/ameua-sub001/internal/application/contact"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/dto"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
)

type ContactHandler struct {
	svc *contact.Service
}

func NewContactHandler(svc *contact.Service) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// Submit handles POST /api/v1/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.svc.Submit(r.Context(), contact.Message{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Message,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.Accepted(w, dto.MessageData{Message: "Thanks, your message has been sent."})
}
