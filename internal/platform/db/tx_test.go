package db

import (
	"context"
	"fmt"
	"testing"
)

func TestTxFromContextEmpty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil transaction on a bare context")
	}
}

func TestInTxWithoutPoolRunsDirectly(t *testing.T) {
	called := false
	err := InTx(context.Background(), nil, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("fn was not invoked")
	}
}

func TestInTxPropagatesError(t *testing.T) {
	want := fmt.Errorf("boom")
	err := InTx(context.Background(), nil, func(ctx context.Context) error {
		return want
	})
	if err != want {
		t.Errorf("expected %v, got %v", want, err)
	}
}
