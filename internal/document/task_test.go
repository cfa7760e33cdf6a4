package document

import (
	"testing"
	"time"
)

func TestTaskRoundTrip(t *testing.T) {
	meta := TaskMeta{
		Completed: false,
		Created:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Updated:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	raw, err := EncodeTask(meta, "Fix the login flow", "Steps:\n\n- reproduce\n- patch")
	if err != nil {
		t.Fatalf("EncodeTask: %v", err)
	}

	gotMeta, title, body, err := DecodeTask(raw)
	if err != nil {
		t.Fatalf("DecodeTask: %v", err)
	}
	if gotMeta.Completed {
		t.Error("completed = true, want false")
	}
	if !gotMeta.Created.Equal(meta.Created) {
		t.Errorf("created = %v", gotMeta.Created)
	}
	if title != "Fix the login flow" {
		t.Errorf("title = %q", title)
	}
	if body != "Steps:\n\n- reproduce\n- patch" {
		t.Errorf("body = %q", body)
	}
}

func TestDecodeTask_EmptyBody(t *testing.T) {
	raw, err := EncodeTask(TaskMeta{Completed: true}, "Done task", "")
	if err != nil {
		t.Fatalf("EncodeTask: %v", err)
	}
	meta, title, body, err := DecodeTask(raw)
	if err != nil {
		t.Fatalf("DecodeTask: %v", err)
	}
	if !meta.Completed {
		t.Error("completed = false, want true")
	}
	if title != "Done task" || body != "" {
		t.Errorf("title = %q, body = %q", title, body)
	}
}

func TestDecodeTask_MissingFrontmatter(t *testing.T) {
	if _, _, _, err := DecodeTask([]byte("# No header\nbody\n")); err == nil {
		t.Error("expected error for task without frontmatter")
	}
}

func TestDecodeTask_DelimiterMustBeFullLine(t *testing.T) {
	// A "----" typo does not close the frontmatter block.
	raw := []byte("---\ncompleted: false\n----\n# Title\nbody\n")
	if _, _, _, err := DecodeTask(raw); err == nil {
		t.Error("expected error for unclosed task frontmatter")
	}
}

func TestDecodeTask_MissingTitle(t *testing.T) {
	raw := []byte("---\ncompleted: false\n---\n\nbody without heading\n")
	if _, _, _, err := DecodeTask(raw); err == nil {
		t.Error("expected error for task without title heading")
	}
}
