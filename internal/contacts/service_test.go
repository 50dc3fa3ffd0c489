package contacts

import (
	"context"
	"errors"
	"testing"
)

func TestContactCRUD(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "u1", "  Mom  ", " 0812-1111 ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Mom" || c.PhoneNumber != "0812-1111" {
		t.Fatalf("create did not trim: %+v", c)
	}
	if c.ID == "" {
		t.Fatalf("expected a contact id")
	}

	got, err := svc.Get(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Mom" {
		t.Fatalf("get: %+v", got)
	}

	updated, err := svc.Update(ctx, "u1", c.ID, "Mother", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Mother" {
		t.Fatalf("name not updated: %+v", updated)
	}
	if updated.PhoneNumber != "0812-1111" {
		t.Fatalf("empty phone must keep the old value: %+v", updated)
	}

	list, err := svc.List(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d contacts)", err, len(list))
	}

	if err := svc.Delete(ctx, "u1", c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestContactsAreOwnerScoped(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "u1", "Mom", "0812")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "u2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get: %v", err)
	}
	if _, err := svc.Update(ctx, "u2", c.ID, "Hax", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user update: %v", err)
	}
	if err := svc.Delete(ctx, "u2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user delete: %v", err)
	}

	list, err := svc.List(ctx, "u2")
	if err != nil || len(list) != 0 {
		t.Fatalf("cross-user list: %v (%d contacts)", err, len(list))
	}
	// The owner still sees it unchanged.
	got, err := svc.Get(ctx, "u1", c.ID)
	if err != nil || got.Name != "Mom" {
		t.Fatalf("owner view after hostile attempts: %+v err=%v", got, err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	cases := [][3]string{
		{"", "Mom", "0812"},
		{"u1", "", "0812"},
		{"u1", "Mom", ""},
		{"u1", "   ", "0812"},
	}
	for i, c := range cases {
		if _, err := svc.Create(ctx, c[0], c[1], c[2]); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestListSortedByName(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	for _, name := range []string{"Charlie", "Alice", "Bob"} {
		if _, err := svc.Create(ctx, "u1", name, "0812"); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Alice", "Bob", "Charlie"}
	for i, w := range want {
		if list[i].Name != w {
			t.Fatalf("list[%d] = %q, want %q", i, list[i].Name, w)
		}
	}
}
