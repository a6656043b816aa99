package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"remotefactory/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()

	if store.Driver() != core.DriverS3 {
		t.Fatalf("driver = %s", store.Driver())
	}

	info, err := store.Put(ctx, "audit/entry.json", strings.NewReader(`{"outcome":"denied"}`), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(`{"outcome":"denied"}`)) {
		t.Fatalf("size = %d", info.Size)
	}

	if _, err := store.Put(ctx, "audit/entry.json", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("existing key must be rejected")
	}

	got, rc, err := store.Get(ctx, "audit/entry.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"outcome":"denied"}` {
		t.Fatalf("body = %s", body)
	}
	if got.ContentType != "application/json" {
		t.Fatalf("content type = %s", got.ContentType)
	}
}

func TestMockStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()

	for _, key := range []string{"audit/a.json", "audit/b.json", "other/c.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("{}"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "audit/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "audit/a.json" || infos[1].Key != "audit/b.json" {
		t.Fatalf("list = %+v", infos)
	}

	existed, err := store.Delete(ctx, "audit/a.json")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if _, err := store.Head(ctx, "audit/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head after delete: %v", err)
	}
}
