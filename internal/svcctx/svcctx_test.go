package svcctx

import (
	"context"
	"testing"

	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/providers"
)

func TestServicesFrom(t *testing.T) {
	ctx := context.Background()
	if ServicesFrom(ctx) != nil {
		t.Fatal("expected nil services on bare context")
	}
	if StoreFrom(ctx) != nil || RunnerFrom(ctx) != nil || RegistryFrom(ctx) != nil || ConfigFrom(ctx) != nil {
		t.Error("extractors should return nil on bare context")
	}
	if LoggerFrom(ctx) == nil {
		t.Error("LoggerFrom should fall back to the default logger")
	}

	store := jobs.NewMemoryStore()
	registry := providers.NewRegistry()
	ctx = WithServices(ctx, &Services{Store: store, Registry: registry})

	if StoreFrom(ctx) != store {
		t.Error("StoreFrom returned a different store")
	}
	if RegistryFrom(ctx) != registry {
		t.Error("RegistryFrom returned a different registry")
	}
	if ConfigFrom(ctx) != nil {
		t.Error("ConfigFrom without a manager should be nil")
	}
}
