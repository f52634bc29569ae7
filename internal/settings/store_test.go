package settings_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"velocity/monitor-service/internal/settings"
)

// ── Defaults ───────────────────────────────────────────────────────────────

func TestDefault_KnownListsNonEmpty(t *testing.T) {
	for _, name := range settings.Names {
		if len(settings.Default(name)) == 0 {
			t.Errorf("Default(%q) is empty, every list needs a compiled-in default", name)
		}
	}
}

func TestDefault_UnknownListIsNil(t *testing.T) {
	if settings.Default("no_such_list") != nil {
		t.Error("Default for an unknown name should be nil")
	}
}

func TestDefault_ReturnsCopy(t *testing.T) {
	a := settings.Default(settings.TargetLocations)
	a[0] = "mutated"
	b := settings.Default(settings.TargetLocations)
	if b[0] == "mutated" {
		t.Error("Default must return a copy, not the backing slice")
	}
}

// ── StaticStore ────────────────────────────────────────────────────────────

func TestStaticStore_GetFallsBackToDefault(t *testing.T) {
	s := settings.NewStaticStore(nil)
	got := s.Get(context.Background(), settings.TargetLocations)
	want := settings.Default(settings.TargetLocations)
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("unset list should return the default, got %v", got)
	}
}

func TestStaticStore_SetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := settings.NewStaticStore(nil)

	if err := s.Set(ctx, settings.TargetKeywords, []string{"Go", "Rust"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got := s.Get(ctx, settings.TargetKeywords)
	if len(got) != 2 || got[0] != "Go" || got[1] != "Rust" {
		t.Errorf("Get after Set = %v, want [Go Rust]", got)
	}
}

func TestStaticStore_SetUnknownListFails(t *testing.T) {
	if err := settings.NewStaticStore(nil).Set(context.Background(), "bogus", nil); err == nil {
		t.Error("Set with an unknown list name should fail")
	}
}

func TestStaticStore_SeedIfMissingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := settings.NewStaticStore(nil)

	if err := s.Set(ctx, settings.TargetKeywords, []string{"Go"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.SeedIfMissing(ctx); err != nil {
		t.Fatalf("SeedIfMissing: %v", err)
	}
	if err := s.SeedIfMissing(ctx); err != nil {
		t.Fatalf("SeedIfMissing (second): %v", err)
	}

	if got := s.Get(ctx, settings.TargetKeywords); len(got) != 1 || got[0] != "Go" {
		t.Errorf("seeding must not overwrite an existing list, got %v", got)
	}
	if got := s.Get(ctx, settings.BlockedCompanies); len(got) == 0 {
		t.Error("seeding should populate unset lists")
	}
}

// ── RedisStore degradation ─────────────────────────────────────────────────

func TestRedisStore_GetFallsBackToDefaultWhenBackendDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := settings.NewRedisStore(client, zap.NewNop().Sugar())

	got := s.Get(context.Background(), settings.TargetKeywords)
	want := settings.Default(settings.TargetKeywords)
	if len(got) != len(want) {
		t.Errorf("backend-down Get returned %d items, want the %d defaults", len(got), len(want))
	}
}
