package database

import "testing"

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/sitejo?sslmode=disable":   "pgx5://u:p@db:5432/sitejo?sslmode=disable",
		"postgresql://u:p@db:5432/sitejo?sslmode=disable": "pgx5://u:p@db:5432/sitejo?sslmode=disable",
		"pgx5://u:p@db/sitejo":                            "pgx5://u:p@db/sitejo",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 || len(entries)%2 != 0 {
		t.Fatalf("expected up/down pairs, got %d files", len(entries))
	}
}
