package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"remotefactory/internal/blob/core"
)

func TestPutGetHeadDeleteList(t *testing.T) {
	ctx := context.Background()
	store := New()

	info, err := store.Put(ctx, "audit/a.json", strings.NewReader(`{"op":"create"}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"origin": "local"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(`{"op":"create"}`)) {
		t.Fatalf("size = %d", info.Size)
	}

	if _, err := store.Put(ctx, "audit/a.json", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("duplicate key must be rejected")
	}

	got, rc, err := store.Get(ctx, "audit/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"op":"create"}` {
		t.Fatalf("body = %s", body)
	}
	if got.Metadata["origin"] != "local" {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}

	head, err := store.Head(ctx, "audit/a.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" {
		t.Fatalf("content type = %s", head.ContentType)
	}

	if _, err := store.Put(ctx, "audit/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "other/c.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put c: %v", err)
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
	existed, err = store.Delete(ctx, "audit/a.json")
	if err != nil || existed {
		t.Fatalf("second delete must report missing, existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "audit/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}
