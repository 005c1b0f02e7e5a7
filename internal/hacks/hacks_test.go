package hacks

import "testing"

func TestDefaultsShape(t *testing.T) {
	set := Defaults()
	if len(set) != 5 {
		t.Fatalf("default set has %d hacks, want 5", len(set))
	}
	byMilestone := map[int]Hack{}
	for _, h := range set {
		byMilestone[h.Milestone] = h
	}
	for _, m := range Milestones {
		if _, ok := byMilestone[m]; !ok {
			t.Fatalf("no hack at milestone %d", m)
		}
	}
	if byMilestone[80].Enabled {
		t.Fatalf("expert panel should be disabled by default")
	}
	if byMilestone[40].Fallback == "" {
		t.Fatalf("web-backed hack should carry a fallback")
	}
	if byMilestone[100].Enhanced == "" {
		t.Fatalf("devil's advocate should carry an enhanced variant")
	}
}

func TestHacksForFiresOncePerMilestone(t *testing.T) {
	in := NewInjector(nil)

	due := in.HacksFor(25)
	if len(due) != 1 || due[0].ID != "clarify" {
		t.Fatalf("at 25%%: %+v, want clarify only", due)
	}
	if again := in.HacksFor(25); len(again) != 0 {
		t.Fatalf("milestone fired twice: %+v", again)
	}

	// Jumping past several milestones fires all of them at once, in order.
	due = in.HacksFor(100)
	ids := make([]string, len(due))
	for i, h := range due {
		ids[i] = h.ID
	}
	want := []string{"web_backed", "self_grade", "devils_advocate"}
	if len(ids) != len(want) {
		t.Fatalf("at 100%%: %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("at 100%%: %v, want %v", ids, want)
		}
	}
}

func TestHacksForSkipsDisabled(t *testing.T) {
	in := NewInjector(nil)
	due := in.HacksFor(80)
	for _, h := range due {
		if h.ID == "expert_panel" {
			t.Fatalf("disabled hack fired")
		}
	}

	in.Reset()
	in.Enable("expert_panel", true)
	due = in.HacksFor(80)
	found := false
	for _, h := range due {
		if h.ID == "expert_panel" {
			found = true
		}
	}
	if !found {
		t.Fatalf("enabled expert panel did not fire at 80%%")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	in := NewInjector(nil)
	if due := in.Peek(20); len(due) != 1 {
		t.Fatalf("peek at 20%% = %+v", due)
	}
	if due := in.HacksFor(20); len(due) != 1 {
		t.Fatalf("peek consumed the milestone")
	}
}

func TestRecommendFor(t *testing.T) {
	in := NewInjector(nil)

	rec := in.RecommendFor(ModeAmbiguous)
	if len(rec) != 1 || rec[0].ID != "clarify" {
		t.Fatalf("mode A recommendation = %+v", rec)
	}

	rec = in.RecommendFor(ModeHighRisk)
	if len(rec) != 1 || rec[0].ID != "devils_advocate" {
		t.Fatalf("mode D recommendation = %+v", rec)
	}

	rec = in.RecommendFor(ModeLargeTask)
	if len(rec) != 4 {
		t.Fatalf("mode C should recommend all enabled hacks, got %d", len(rec))
	}

	if rec := in.RecommendFor(ModeInvalid); rec != nil {
		t.Fatalf("mode B should recommend nothing, got %+v", rec)
	}
}
