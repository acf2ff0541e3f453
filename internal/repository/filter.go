package repository

import (
	"strings"

	"github.com/kurokana/SiTeJo-Web/internal/models"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

type TicketFilter struct {
	StudentID  string
	LecturerID string
	Status     models.Status
	Priority   models.Priority
	Type       models.TicketType
	Search     string // title, description, ticket number
	Page       int
	PerPage    int
	Sort       string // created_at, updated_at, priority
	Order      string // asc|desc
}

// Normalize clamps paging and sort options to supported values.
func (f TicketFilter) Normalize() TicketFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Page, f.PerPage = clampPage(f.Page, f.PerPage)
	f.Sort = SanitizeSort(f.Sort, "created_at")
	f.Order = SanitizeOrder(f.Order, "desc")
	return f
}

func (f TicketFilter) Offset() int { return (f.Page - 1) * f.PerPage }

type UserFilter struct {
	Search  string
	Role    models.Role
	Active  *bool
	Page    int
	PerPage int
}

func (f UserFilter) Normalize() UserFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Page, f.PerPage = clampPage(f.Page, f.PerPage)
	return f
}

func (f UserFilter) Offset() int { return (f.Page - 1) * f.PerPage }

// Pagination is the page metadata returned with list responses.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

func NewPagination(page, perPage, total int) Pagination {
	last := 1
	if perPage > 0 && total > 0 {
		last = (total + perPage - 1) / perPage
	}
	return Pagination{CurrentPage: page, LastPage: last, PerPage: perPage, Total: total}
}

func SanitizeSort(s, def string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "created_at", "updated_at", "priority":
		return v
	default:
		return def
	}
}

func SanitizeOrder(o, def string) string {
	switch v := strings.ToLower(strings.TrimSpace(o)); v {
	case "asc", "desc":
		return v
	default:
		return def
	}
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
