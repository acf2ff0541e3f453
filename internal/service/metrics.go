package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitejo_ticket_transitions_total",
			Help: "Ticket actions by outcome (ok or error kind).",
		},
		[]string{"action", "outcome"},
	)

	lecturerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitejo_lecturer_cache_hits_total",
		Help: "Lecturer directory cache hits.",
	})
	lecturerCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitejo_lecturer_cache_misses_total",
		Help: "Lecturer directory cache misses.",
	})
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
