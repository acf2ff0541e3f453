package lifecycle

import "github.com/kurokana/SiTeJo-Web/internal/models"

// Aggregate folds tickets into counts by status and priority. The
// result does not depend on input order.
func Aggregate(tickets []models.Ticket) models.Statistics {
	s := models.NewStatistics()
	for _, t := range tickets {
		s.Add(t.Status, t.Priority, 1)
	}
	return s
}
