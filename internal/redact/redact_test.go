package redact

import "testing"

func TestIsPIIColumn(t *testing.T) {
	cases := map[string]bool{
		"email":        true,
		"Customer_DOB": true,
		"ssn_number":   true,
		"order_id":     false,
	}
	for col, want := range cases {
		if got := IsPIIColumn(col); got != want {
			t.Errorf("IsPIIColumn(%q) = %v, want %v", col, got, want)
		}
	}
}

func TestRedactTextMasksEmail(t *testing.T) {
	out := RedactText("contact jane.doe@example.com for details")
	if out == "contact jane.doe@example.com for details" {
		t.Fatalf("expected email to be redacted, got %q", out)
	}
}

func TestRedactRowsMasksPIIColumnsAndLeavesNonPIIAlone(t *testing.T) {
	rows := []map[string]any{
		{"email": "jane.doe@example.com", "order_id": "1234"},
	}
	out := RedactRows(rows)
	if out[0]["email"] == "jane.doe@example.com" {
		t.Fatalf("expected email column masked, got %v", out[0]["email"])
	}
	if out[0]["order_id"] != "1234" {
		t.Fatalf("expected non-PII numeric-looking column unchanged, got %v", out[0]["order_id"])
	}
}

func TestRedactRowsLeavesNullUntouched(t *testing.T) {
	rows := []map[string]any{{"email": nil}}
	out := RedactRows(rows)
	if out[0]["email"] != nil {
		t.Fatalf("expected nil to remain nil, got %v", out[0]["email"])
	}
}

func TestValidateQueryForPIIWarnsOnSelectStar(t *testing.T) {
	warnings := ValidateQueryForPII("SELECT * FROM t", map[string][]string{"t": {"email"}})
	if len(warnings) == 0 {
		t.Fatal("expected at least one warning for SELECT *")
	}
}

func TestValidateQueryForPIIWarnsOnExplicitColumn(t *testing.T) {
	warnings := ValidateQueryForPII("SELECT email FROM t", map[string][]string{"t": {"email", "order_id"}})
	found := false
	for _, w := range warnings {
		if w.Message == "query references PII column: email" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning naming the email column, got %+v", warnings)
	}
}
