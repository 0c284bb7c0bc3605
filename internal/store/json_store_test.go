package store

import (
	"context"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/lewtec/veredito/internal/domain"
)

func TestJSONStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("missing store yields an empty set, not an error", func(t *testing.T) {
		s := NewJSONStore(memfs.New())
		annotations, err := s.Load(ctx, "A1")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(annotations) != 0 {
			t.Errorf("got %d annotations, want 0", len(annotations))
		}
	})

	t.Run("malformed store is an error", func(t *testing.T) {
		fs := memfs.New()
		if err := util.WriteFile(fs, "A1.json", []byte("{broken"), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
		if _, err := NewJSONStore(fs).Load(ctx, "A1"); err == nil {
			t.Error("Load() expected error for malformed store")
		}
	})

	t.Run("rejects annotator ids with path separators", func(t *testing.T) {
		s := NewJSONStore(memfs.New())
		if _, err := s.Load(ctx, "../A1"); err == nil {
			t.Error("Load() expected error for id with path separator")
		}
		if _, err := s.Load(ctx, ""); err == nil {
			t.Error("Load() expected error for empty id")
		}
	})
}

func TestJSONStore_SaveAll(t *testing.T) {
	ctx := context.Background()

	t.Run("save then load round trips", func(t *testing.T) {
		s := NewJSONStore(memfs.New())
		want := []domain.Annotation{
			TestAnnotation("A1", "s1"),
			TestAnnotation("A1", "s2"),
		}
		want[1].TypeCorrectness = domain.NotApplicable
		want[1].LocalizationScore = domain.ScoreNA

		if err := s.SaveAll(ctx, "A1", want); err != nil {
			t.Fatalf("SaveAll() error = %v", err)
		}
		got, err := s.Load(ctx, "A1")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d annotations, want 2", len(got))
		}
		if got[0] != want[0] || got[1] != want[1] {
			t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
		}
	})

	t.Run("replaces the previous set entirely", func(t *testing.T) {
		s := NewJSONStore(memfs.New())
		first := []domain.Annotation{TestAnnotation("A1", "s1"), TestAnnotation("A1", "s2")}
		if err := s.SaveAll(ctx, "A1", first); err != nil {
			t.Fatalf("SaveAll() error = %v", err)
		}
		second := []domain.Annotation{TestAnnotation("A1", "s3")}
		if err := s.SaveAll(ctx, "A1", second); err != nil {
			t.Fatalf("SaveAll() error = %v", err)
		}

		got, err := s.Load(ctx, "A1")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != 1 || got[0].SampleID != "s3" {
			t.Errorf("got %+v, want only s3", got)
		}
	})

	t.Run("leaves no temp file behind", func(t *testing.T) {
		fs := memfs.New()
		s := NewJSONStore(fs)
		if err := s.SaveAll(ctx, "A1", []domain.Annotation{TestAnnotation("A1", "s1")}); err != nil {
			t.Fatalf("SaveAll() error = %v", err)
		}
		if _, err := fs.Stat("A1.json.tmp"); !os.IsNotExist(err) {
			t.Errorf("Stat(temp) error = %v, want not-exist", err)
		}
	})
}

func TestJSONStore_ListAnnotators(t *testing.T) {
	ctx := context.Background()
	s := NewJSONStore(memfs.New())

	ids, err := s.ListAnnotators(ctx)
	if err != nil {
		t.Fatalf("ListAnnotators() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("got %v, want empty", ids)
	}

	s.SaveAll(ctx, "B2", nil)
	s.SaveAll(ctx, "A1", nil)

	ids, err = s.ListAnnotators(ctx)
	if err != nil {
		t.Fatalf("ListAnnotators() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "A1" || ids[1] != "B2" {
		t.Errorf("ListAnnotators() = %v, want [A1 B2]", ids)
	}
}
