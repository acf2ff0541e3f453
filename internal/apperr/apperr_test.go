package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("bad %s", "input"), KindValidation},
		{InvalidTransition("nope"), KindInvalidTransition},
		{NotFound("ticket"), KindNotFound},
		{Unauthorized("role"), KindUnauthorized},
		{errors.New("connection reset"), KindRepository},
		{fmt.Errorf("load ticket: %w", NotFound("ticket %s", "t-1")), KindNotFound},
		{Repository(errors.New("timeout"), "query tickets"), KindRepository},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestRepositoryKeepsTypedErrors(t *testing.T) {
	nf := NotFound("document")
	if got := Repository(nf, "load"); got != error(nf) {
		t.Fatalf("typed error was rewrapped: %v", got)
	}
	if Repository(nil, "noop") != nil {
		t.Fatal("nil error must stay nil")
	}
	cause := errors.New("disk full")
	err := Repository(cause, "write blob")
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if err.Error() != "write blob: disk full" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InvalidTransition("already completed"))
	if !errors.Is(err, InvalidTransition("")) {
		t.Fatal("errors.Is should match on kind")
	}
	if errors.Is(err, NotFound("")) {
		t.Fatal("different kind matched")
	}
}

func TestParseKind(t *testing.T) {
	if ParseKind("NOT_FOUND") != KindNotFound {
		t.Fatal("NOT_FOUND")
	}
	if ParseKind("INTERNAL_ERROR") != KindRepository {
		t.Fatal("unknown codes map to repository errors")
	}
}
