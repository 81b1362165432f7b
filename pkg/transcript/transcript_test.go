package transcript

import "testing"

func TestCommitTurn_UserOnly(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.AppendUser("hello")
	r.CommitTurn()

	got := r.History()
	if len(got) != 1 {
		t.Fatalf("history len=%d, want 1", len(got))
	}
	if got[0] != (Entry{Text: "hello", Role: RoleUser}) {
		t.Fatalf("entry=%+v", got[0])
	}
}

func TestCommitTurn_BothRolesUserFirst(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.AppendModel("hello ")
	r.AppendModel("there")
	r.AppendUser("hi")
	r.CommitTurn()

	got := r.History()
	if len(got) != 2 {
		t.Fatalf("history len=%d, want 2", len(got))
	}
	if got[0] != (Entry{Text: "hi", Role: RoleUser}) {
		t.Fatalf("first entry=%+v, want user", got[0])
	}
	if got[1] != (Entry{Text: "hello there", Role: RoleModel}) {
		t.Fatalf("second entry=%+v, want model", got[1])
	}
}

func TestCommitTurn_EmptyIsNoOp(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.CommitTurn()
	if got := r.History(); len(got) != 0 {
		t.Fatalf("history len=%d, want 0", len(got))
	}
}

func TestCommitTurn_ClearsAccumulators(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.AppendUser("one")
	r.AppendModel("two")
	r.CommitTurn()

	user, model := r.Live()
	if user != "" || model != "" {
		t.Fatalf("live=(%q, %q) after commit, want empty", user, model)
	}
}

func TestHistory_BoundedToLimit(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	for i := 0; i < 5; i++ {
		r.AppendUser("u")
		r.AppendModel("m")
		r.CommitTurn()
		if got := len(r.History()); got > DefaultHistoryLimit {
			t.Fatalf("history len=%d after commit %d, want <= %d", got, i, DefaultHistoryLimit)
		}
	}

	got := r.History()
	if len(got) != 2 {
		t.Fatalf("history len=%d, want 2", len(got))
	}
	// Oldest evicted first: the bound keeps the latest turn's pair.
	if got[0].Role != RoleUser || got[1].Role != RoleModel {
		t.Fatalf("history=%+v", got)
	}
}

func TestWithHistoryLimit(t *testing.T) {
	t.Parallel()

	r := NewReconciler(WithHistoryLimit(4))
	for i := 0; i < 3; i++ {
		r.AppendUser("u")
		r.AppendModel("m")
		r.CommitTurn()
	}
	if got := len(r.History()); got != 4 {
		t.Fatalf("history len=%d, want 4", got)
	}
}

func TestActiveUtterance_ModelTakesPrecedence(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.AppendUser("what's the weather")
	if got := r.ActiveUtterance(); got != "what's the weather" {
		t.Fatalf("active=%q", got)
	}
	r.AppendModel("It is")
	if got := r.ActiveUtterance(); got != "It is" {
		t.Fatalf("active=%q, want model text", got)
	}
}

func TestClearLive_PreservesHistory(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.AppendUser("kept")
	r.CommitTurn()
	r.AppendUser("dropped")
	r.AppendModel("dropped too")

	r.ClearLive()

	user, model := r.Live()
	if user != "" || model != "" {
		t.Fatalf("live=(%q, %q), want empty", user, model)
	}
	if got := r.History(); len(got) != 1 || got[0].Text != "kept" {
		t.Fatalf("history=%+v", got)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.AppendUser("a")
	r.CommitTurn()
	r.AppendModel("b")

	r.Reset()

	if got := r.History(); len(got) != 0 {
		t.Fatalf("history=%+v, want empty", got)
	}
	if got := r.ActiveUtterance(); got != "" {
		t.Fatalf("active=%q, want empty", got)
	}
}
