package models

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var Statuses = []Status{StatusPending, StatusInReview, StatusApproved, StatusRejected, StatusCompleted}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected, StatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no workflow transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Editable reports whether the creating student may still change the ticket.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusRejected
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	default:
		return "", false
	}
}

type TicketType string

const (
	TypeRecommendationLetter TicketType = "letter-of-recommendation"
	TypeStatementLetter      TicketType = "letter-of-statement"
	TypePermissionRequest    TicketType = "permission-request"
	TypeOther                TicketType = "other"
)

var TicketTypes = []TicketType{TypeRecommendationLetter, TypeStatementLetter, TypePermissionRequest, TypeOther}

// ParseTicketType also maps the Indonesian form values of the old portal.
func ParseTicketType(s string) (TicketType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "letter-of-recommendation", "surat-rekomendasi":
		return TypeRecommendationLetter, true
	case "letter-of-statement", "surat-keterangan":
		return TypeStatementLetter, true
	case "permission-request", "izin-penelitian", "izin":
		return TypePermissionRequest, true
	case "other", "lainnya":
		return TypeOther, true
	default:
		return "", false
	}
}

type Ticket struct {
	ID              string       `json:"id"`
	Number          string       `json:"ticket_number"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Type            TicketType   `json:"type"`
	Priority        Priority     `json:"priority"`
	Status          Status       `json:"status"`
	StudentID       string       `json:"student_id"`
	LecturerID      string       `json:"lecturer_id"`
	AdminID         string       `json:"admin_id,omitempty"`
	LecturerNotes   string       `json:"lecturer_notes,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	AdminNotes      string       `json:"admin_notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	Student         *UserSummary `json:"student,omitempty"`
	Lecturer        *UserSummary `json:"lecturer,omitempty"`
}

type Document struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	DocumentType string    `json:"document_type"`
	ContentType  string    `json:"content_type"`
	Checksum     string    `json:"checksum"`
	StoragePath  string    `json:"-"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultDocumentType tags uploads that do not name a type.
const DefaultDocumentType = "supporting_document"

// Statistics is the derived count view over a set of tickets.
type Statistics struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByPriority map[Priority]int `json:"by_priority"`
}

// NewStatistics returns a view with every bucket present and zero.
func NewStatistics() Statistics {
	s := Statistics{
		ByStatus:   make(map[Status]int, len(Statuses)),
		ByPriority: make(map[Priority]int, len(Priorities)),
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, p := range Priorities {
		s.ByPriority[p] = 0
	}
	return s
}

// Add counts n tickets with the given status and priority.
func (s *Statistics) Add(st Status, p Priority, n int) {
	s.Total += n
	s.ByStatus[st] += n
	s.ByPriority[p] += n
}
