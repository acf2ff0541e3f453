package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/config"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository/memory"
	"github.com/kurokana/SiTeJo-Web/internal/router"
	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/storage"
	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	utils.BcryptCost = 4
	cfg := config.Config{SessionSecret: "test-secret", SessionTTL: time.Hour, MaxUploadBytes: 1 << 10}
	log := zerolog.Nop()
	store := memory.NewStore()
	blobs, err := storage.New(t.TempDir(), cfg.MaxUploadBytes)
	if err != nil {
		t.Fatal(err)
	}
	tickets := service.NewTicketService(store.Tickets(), store.Documents(), store.Users(), blobs, log)
	lecturers := service.NewLecturerDirectory(store.Users(), 4, time.Minute)
	users := service.NewUserService(store.Users(), lecturers)
	for _, u := range []struct{ name, role string }{{"sari", "student"}, {"budi", "lecturer"}, {"rina", "admin"}} {
		_, err := users.Create(context.Background(), service.NewUser{
			Registration: service.Registration{Name: u.name, Email: u.name + "@kampus.ac.id", Password: "password123"},
			Role:         u.role,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	srv := httptest.NewServer(router.New(log, router.Services{
		Auth:      service.NewAuthService(store.Users(), cfg.SessionSecret, cfg.SessionTTL),
		Tickets:   tickets,
		Documents: service.NewDocumentService(tickets, store.Documents(), blobs, log),
		Users:     users,
		Lecturers: lecturers,
	}, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, base, name string) *Client {
	t.Helper()
	c := New(base)
	if _, err := c.Login(context.Background(), name+"@kampus.ac.id", "password123"); err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return c
}

func TestClientWorkflow(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	if _, err := New(srv.URL).Me(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous me err = %v", err)
	}
	if _, err := New(srv.URL).Login(ctx, "sari@kampus.ac.id", "wrong-password"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("bad login err = %v", err)
	}

	student := login(t, srv.URL, "sari")
	lecturer := login(t, srv.URL, "budi")
	admin := login(t, srv.URL, "rina")

	lecturers, err := student.Lecturers(ctx)
	if err != nil || len(lecturers) != 1 {
		t.Fatalf("lecturers = %+v, %v", lecturers, err)
	}

	_, err = student.CreateTicket(ctx, NewTicket{Title: " ", LecturerID: lecturers[0].ID})
	if apperr.KindOf(err) != apperr.KindValidation || len(apperr.FieldsOf(err)["title"]) == 0 {
		t.Fatalf("invalid create err = %v", err)
	}

	tk, err := student.CreateTicket(ctx, NewTicket{Title: "Recommendation", Description: "exchange", LecturerID: lecturers[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if tk.Status != models.StatusPending || len(tk.AllowedActions) == 0 {
		t.Fatalf("created = %+v", tk)
	}

	title := "Recommendation letter"
	tk, err = student.EditTicket(ctx, tk.ID, TicketEdit{Title: &title})
	if err != nil || tk.Title != title {
		t.Fatalf("edit = %+v, %v", tk, err)
	}

	if _, err := student.Transition(ctx, tk.ID, lifecycle.ActionApprove, lifecycle.Payload{}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("student approve err = %v", err)
	}
	if _, err := student.Transition(ctx, tk.ID, lifecycle.ActionEdit, lifecycle.Payload{}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("edit via transition err = %v", err)
	}
	if _, err := lecturer.Transition(ctx, tk.ID, lifecycle.ActionReview, lifecycle.Payload{Notes: "looking"}); err != nil {
		t.Fatal(err)
	}
	if _, err := lecturer.Transition(ctx, tk.ID, lifecycle.ActionApprove, lifecycle.Payload{}); err != nil {
		t.Fatal(err)
	}
	done, err := admin.Transition(ctx, tk.ID, lifecycle.ActionComplete, lifecycle.Payload{Notes: "signed"})
	if err != nil || done.Status != models.StatusCompleted || done.AdminNotes != "signed" {
		t.Fatalf("complete = %+v, %v", done, err)
	}
	if _, err := admin.Transition(ctx, tk.ID, lifecycle.ActionComplete, lifecycle.Payload{}); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("second complete err = %v", err)
	}

	list, err := student.ListTickets(ctx, ListOptions{Status: "completed", PerPage: 5})
	if err != nil || len(list.Items) != 1 || list.Pagination.PerPage != 5 {
		t.Fatalf("list = %+v, %v", list, err)
	}
	stats, err := lecturer.Statistics(ctx)
	if err != nil || stats.Total != 1 || stats.ByStatus[models.StatusCompleted] != 1 {
		t.Fatalf("stats = %+v, %v", stats, err)
	}

	if err := admin.DeleteTicket(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := student.GetTicket(ctx, tk.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("get deleted err = %v", err)
	}
}

func TestClientDocuments(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	student := login(t, srv.URL, "sari")
	lecturer := login(t, srv.URL, "budi")

	lecturers, err := student.Lecturers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	tk, err := student.CreateTicket(ctx, NewTicket{Title: "Permission", Description: "lab", LecturerID: lecturers[0].ID})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := student.Upload(ctx, tk.ID, "big.bin", "", bytes.NewReader(make([]byte, 4<<10))); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("oversized upload err = %v", err)
	}
	d, err := student.Upload(ctx, tk.ID, "ktm.pdf", "id_card", strings.NewReader("student card"))
	if err != nil {
		t.Fatal(err)
	}

	docs, err := lecturer.ListDocuments(ctx, tk.ID)
	if err != nil || len(docs) != 1 || docs[0].ID != d.ID {
		t.Fatalf("documents = %+v, %v", docs, err)
	}

	var buf bytes.Buffer
	got, err := lecturer.Download(ctx, d.ID, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "student card" || got.FileName != "ktm.pdf" || got.Checksum != d.Checksum {
		t.Fatalf("download = %+v %q", got, buf.String())
	}

	if err := lecturer.DeleteDocument(ctx, d.ID); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("lecturer delete err = %v", err)
	}
	if err := student.DeleteDocument(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := student.Download(ctx, d.ID, &buf); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("download deleted err = %v", err)
	}
}

func TestDecodeFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   apperr.Kind
	}{
		{"code wins", http.StatusBadRequest, `{"success":false,"code":"NOT_FOUND","message":"x"}`, apperr.KindNotFound},
		{"status mapping", http.StatusConflict, `{"success":false,"message":"moved"}`, apperr.KindInvalidTransition},
		{"server error", http.StatusBadGateway, `{"success":false}`, apperr.KindRepository},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := New(srv.URL, WithHTTPClient(srv.Client())).Me(context.Background())
			if got := apperr.KindOf(err); got != tc.want {
				t.Fatalf("kind = %s, want %s (%v)", got, tc.want, err)
			}
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()
	_, err := New(srv.URL).Me(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unexpected 502") {
		t.Fatalf("non-json err = %v", err)
	}
}

func TestListOptionsQuery(t *testing.T) {
	if q := (ListOptions{}).query(); q != "" {
		t.Fatalf("empty query = %q", q)
	}
	q := ListOptions{Status: "pending", Search: "TKT 1", Page: 2}.query()
	if q != "?page=2&search=TKT+1&status=pending" {
		t.Fatalf("query = %q", q)
	}
}
