package config

import "testing"

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Budgets.ScanBudgetBytes != 10_000_000_000 {
		t.Fatalf("expected default scan budget, got %d", cfg.Budgets.ScanBudgetBytes)
	}
	if cfg.AI.Seed != 42 {
		t.Fatalf("expected default AI seed 42, got %d", cfg.AI.Seed)
	}
	if cfg.Policies.PIIRedactionEnabled != true {
		t.Fatal("expected pii_redaction_enabled to default true")
	}
}

func TestSQLPreviewRequiresBothPolicies(t *testing.T) {
	cases := []struct {
		preview, admin, want bool
	}{
		{false, false, false},
		{true, false, false},
		{false, true, false},
		{true, true, true},
	}
	for _, c := range cases {
		p := Policies{SQLPreviewEnabled: c.preview, AdminPowerMode: c.admin}
		if got := p.SQLPreviewAllowed(); got != c.want {
			t.Errorf("preview=%v admin=%v: got %v, want %v", c.preview, c.admin, got, c.want)
		}
	}
}
