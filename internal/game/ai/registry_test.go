package ai_test

import (
	"testing"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
)

func TestRegistry_Register_And_ProfileFor(t *testing.T) {
	reg := ai.NewRegistry()
	if err := reg.Register(ai.DefaultProfile()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p, ok := reg.ProfileFor("default")
	if !ok || p == nil {
		t.Fatal("expected profile for default")
	}
}

func TestRegistry_Register_CollisionError(t *testing.T) {
	reg := ai.NewRegistry()
	_ = reg.Register(ai.DefaultProfile())
	if err := reg.Register(ai.DefaultProfile()); err == nil {
		t.Fatal("expected collision error on second Register")
	}
}

func TestRegistry_Register_RejectsInvalid(t *testing.T) {
	reg := ai.NewRegistry()
	if err := reg.Register(&ai.Profile{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRegistry_ProfileFor_NotFound(t *testing.T) {
	reg := ai.NewRegistry()
	if _, ok := reg.ProfileFor("missing"); ok {
		t.Fatal("expected not found")
	}
}

func TestRegistry_IDs_Sorted(t *testing.T) {
	reg := ai.NewRegistry()
	for _, id := range []string{"zeta", "alpha"} {
		p := ai.DefaultProfile()
		p.ID = id
		if err := reg.Register(p); err != nil {
			t.Fatalf("Register %s: %v", id, err)
		}
	}
	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "zeta" {
		t.Fatalf("unexpected IDs %v", ids)
	}
}
