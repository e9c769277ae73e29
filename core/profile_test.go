package core

import (
	"testing"
	"time"
)

func TestNewProfileSeeded(t *testing.T) {
	p := NewProfile("alice")
	if len(p.Attributes) != 6 {
		t.Fatalf("expected six attributes, got %d", len(p.Attributes))
	}
	for _, k := range AttrKeys() {
		if a := p.Attributes[k]; a.Level != 1 || a.Exp != 0 {
			t.Fatalf("attribute %s not at level 1 exp 0: %+v", k, a)
		}
	}
	if len(p.Achievements) == 0 {
		t.Fatal("expected seeded achievement catalog")
	}
	for _, a := range p.Achievements {
		if a.Unlocked() {
			t.Fatalf("seeded achievement %s starts unlocked", a.ID)
		}
	}
}

func TestProfileCloneIsDeep(t *testing.T) {
	p := NewProfile("bob")
	p.Events = []Event{{ID: "e1", Title: "跑步", Timestamp: time.Now(), ExpGains: map[AttrKey]int{AttrVit: 5}}}
	p.Projects = []ProjectEvent{{ID: "p1", Title: "项目", AttributeRewards: map[AttrKey]int{AttrInt: 10}}}

	cp := p.Clone()
	cp.Attributes[AttrInt] = Attribute{Level: 9, Exp: 999}
	cp.Events[0].ExpGains[AttrVit] = 99
	cp.Projects[0].AttributeRewards[AttrInt] = 99

	if p.Attributes[AttrInt].Exp != 0 {
		t.Fatal("clone shares the attribute map")
	}
	if p.Events[0].ExpGains[AttrVit] != 5 {
		t.Fatal("clone shares event gain maps")
	}
	if p.Projects[0].AttributeRewards[AttrInt] != 10 {
		t.Fatal("clone shares project reward maps")
	}
}

func TestProfileIndexLookups(t *testing.T) {
	p := NewProfile("carol")
	p.Events = []Event{{ID: "e1"}, {ID: "e2"}}
	p.Items = []Item{{ID: "i1"}}

	if got := p.EventIndex("e2"); got != 1 {
		t.Fatalf("EventIndex = %d, want 1", got)
	}
	if got := p.EventIndex("missing"); got != -1 {
		t.Fatalf("EventIndex for missing id = %d, want -1", got)
	}
	if got := p.ItemIndex("i1"); got != 0 {
		t.Fatalf("ItemIndex = %d, want 0", got)
	}
	if got := p.ProjectIndex("none"); got != -1 {
		t.Fatalf("ProjectIndex for missing id = %d, want -1", got)
	}
}

func TestUnlockedTitlesGrouping(t *testing.T) {
	p := NewProfile("dave")
	now := time.Now().UTC()
	for i := range p.Achievements {
		a := &p.Achievements[i]
		if a.IsTitle && a.AttributeRequirement == AttrInt {
			a.UnlockedAt = &now
		}
	}
	titles := p.UnlockedTitles()
	if len(titles[AttrInt]) == 0 {
		t.Fatal("expected unlocked int titles")
	}
	if len(titles[AttrStr]) != 0 {
		t.Fatal("locked titles must not appear")
	}
}

func TestNormalizeUserID(t *testing.T) {
	got, err := NormalizeUserID("  Alice ")
	if err != nil || got != "alice" {
		t.Fatalf("NormalizeUserID = %q, %v", got, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Fatal("expected error for blank id")
	}
}

func TestApplyExperienceDeltaRecomputesLevel(t *testing.T) {
	attrs := NewAttributeSet()
	updated := ApplyExperienceDelta(attrs, map[AttrKey]int{AttrInt: 50, AttrStr: 0, "bogus": 10})
	if got := updated[AttrInt]; got.Exp != 50 || got.Level != 2 {
		t.Fatalf("expected exp 50 level 2, got %+v", got)
	}
	if _, ok := updated["bogus"]; ok {
		t.Fatal("unknown attribute key was added")
	}
	if attrs[AttrInt].Exp != 0 {
		t.Fatal("input set was mutated")
	}
}

func TestClampProgress(t *testing.T) {
	if ClampProgress(-5) != 0 || ClampProgress(50) != 50 || ClampProgress(120) != 100 {
		t.Fatal("progress not clamped to [0,100]")
	}
}
