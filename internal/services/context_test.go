package services_test

import (
	"context"
	"testing"

	"winnow/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithImage(ctx, "cat_720.jpg")
	ctx = services.WithStage(ctx, "infer")
	ctx = services.WithMode(ctx, "batch")
	ctx = services.WithRunID(ctx, "run-123")

	if image, ok := services.ImageFromContext(ctx); !ok || image != "cat_720.jpg" {
		t.Fatalf("unexpected image: %v %v", image, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "infer" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if mode, ok := services.ModeFromContext(ctx); !ok || mode != "batch" {
		t.Fatalf("unexpected mode: %v %v", mode, ok)
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestMissingAnnotationsReturnFalse(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.ImageFromContext(ctx); ok {
		t.Fatal("expected no image value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
