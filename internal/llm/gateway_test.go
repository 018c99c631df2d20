package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type blockingGateway struct{}

func (blockingGateway) Generate(ctx context.Context, req GenerateRequest) (*GeneratedImage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingGateway) EditImage(ctx context.Context, sourceURL, prompt string) (*GeneratedImage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	if got := WithTimeout(blockingGateway{}, 0); got != (blockingGateway{}) {
		t.Fatal("zero timeout should return the inner gateway")
	}

	gw := WithTimeout(blockingGateway{}, 20*time.Millisecond)
	start := time.Now()
	_, err := gw.Generate(context.Background(), GenerateRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout was not applied")
	}
}

func TestNoImageErrorTruncatesResponse(t *testing.T) {
	err := noImageError(strings.Repeat("x", 250))
	if !errors.Is(err, ErrNoImage) {
		t.Fatal("expected ErrNoImage")
	}
	if !strings.HasSuffix(err.Error(), ": "+strings.Repeat("x", 100)) {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
