package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
	"github.com/kurokana/SiTeJo-Web/internal/database"
	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

// setupDB starts a throwaway PostgreSQL and applies the migrations.
// Set TEST_INTEGRATION=1 to run.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("sitejo_test"),
		tcpostgres.WithUsername("sitejo"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := database.Migrate(dsn, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := database.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestTicketLifecycleAgainstPostgres(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	users := NewUserRepo(pool)
	tickets := NewTicketRepo(pool)
	docs := NewDocumentRepo(pool)

	student := models.User{Name: "Sari", Email: "sari@kampus.ac.id", Role: models.RoleStudent, Identifier: "2101", Active: true}
	lecturer := models.User{Name: "Budi", Email: "budi@kampus.ac.id", Role: models.RoleLecturer, Active: true}
	for _, u := range []*models.User{&student, &lecturer} {
		if err := users.Create(ctx, u, "hash"); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	dup := models.User{Name: "x", Email: "SARI@kampus.ac.id", Role: models.RoleStudent}
	if err := users.Create(ctx, &dup, "hash"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("duplicate email err = %v", err)
	}

	tk, err := lifecycle.Open(lifecycle.Actor{ID: student.ID, Role: models.RoleStudent},
		lifecycle.Draft{Title: "Recommendation", Description: "for exchange", LecturerID: lecturer.ID}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := tickets.Create(ctx, &tk); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if !strings.HasPrefix(tk.Number, "TKT-") || tk.Student == nil || tk.Student.Identifier != "2101" {
		t.Fatalf("created ticket = %+v", tk)
	}

	doc := models.Document{TicketID: tk.ID, FileName: "ktm.pdf", Size: 3, Checksum: "abc", StoragePath: "ab/abc", UploadedBy: student.ID}
	if err := docs.Create(ctx, &doc); err != nil {
		t.Fatalf("create document: %v", err)
	}

	actor := lifecycle.Actor{ID: lecturer.ID, Role: models.RoleLecturer}
	approve, _ := lifecycle.Decide(tk, actor, lifecycle.ActionApprove, lifecycle.Payload{Notes: "ok"}, time.Now())
	reject, _ := lifecycle.Decide(tk, actor, lifecycle.ActionReject, lifecycle.Payload{Reason: "no"}, time.Now())

	got, err := tickets.Apply(ctx, tk.ID, approve)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != models.StatusApproved || got.ReviewedAt == nil || got.LecturerNotes != "ok" {
		t.Fatalf("approved ticket = %+v", got)
	}
	if _, err := tickets.Apply(ctx, tk.ID, reject); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("stale reject err = %v", err)
	}

	st, err := tickets.Statistics(ctx, repository.TicketFilter{StudentID: student.ID})
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 1 || st.ByStatus[models.StatusApproved] != 1 {
		t.Fatalf("stats = %+v", st)
	}

	items, total, err := tickets.List(ctx, repository.TicketFilter{Search: tk.Number})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("search by number: total=%d err=%v", total, err)
	}

	if err := tickets.Delete(ctx, tk.ID, models.StatusApproved); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := docs.Get(ctx, doc.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("document not cascaded: %v", err)
	}
	if _, err := tickets.Get(ctx, "not-a-uuid"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("malformed id err = %v", err)
	}
}
