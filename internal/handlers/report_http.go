package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

type ReportsHTTP struct {
	svc *service.TicketService
	log zerolog.Logger
}

func NewReportsHTTP(svc *service.TicketService, log zerolog.Logger) *ReportsHTTP {
	return &ReportsHTTP{svc: svc, log: log}
}

// GET /api/tickets/statistics
// Returns {total, by_status, by_priority} over the caller's tickets,
// narrowed by the same filters as the list.
func (h *ReportsHTTP) Statistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := ticketFilter(r)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		st, err := h.svc.Statistics(r.Context(), actor(r), f)
		if err != nil {
			utils.Fail(w, h.log, err)
			return
		}
		utils.JSON(w, http.StatusOK, st)
	}
}
