package model

import "testing"

func TestCandidateProfileNameSplit(t *testing.T) {
	tests := []struct {
		full      string
		wantFirst string
		wantLast  string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Grace Brewster Hopper", "Grace", "Hopper"},
		{"Prince", "Prince", ""},
		{"  ", "", ""},
	}

	for _, tt := range tests {
		p := CandidateProfile{FullName: tt.full}
		if got := p.FirstName(); got != tt.wantFirst {
			t.Errorf("FirstName(%q) = %q, want %q", tt.full, got, tt.wantFirst)
		}
		if got := p.LastName(); got != tt.wantLast {
			t.Errorf("LastName(%q) = %q, want %q", tt.full, got, tt.wantLast)
		}
	}
}

func TestCandidateProfileValidate(t *testing.T) {
	p := CandidateProfile{FullName: "Ada Lovelace", Email: "not-an-email"}
	if err := p.Validate(); err == nil {
		t.Error("expected invalid email error")
	}

	p.Email = "ada@example.com"
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.ID != DefaultProfileID {
		t.Errorf("ID = %q, want %q", p.ID, DefaultProfileID)
	}
}

func TestJobValidate(t *testing.T) {
	j := Job{URL: "ftp://example.com/job"}
	if err := j.Validate(); err == nil {
		t.Error("expected scheme error")
	}

	j = Job{URL: "https://boards.example.com/jobs/1"}
	if err := j.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if j.Status != JobStatusScraped || j.Source != "generic" {
		t.Errorf("defaults not applied: status=%q source=%q", j.Status, j.Source)
	}
	if j.Metadata.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}
