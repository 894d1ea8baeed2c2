package contest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mockvest/trading-engine/internal/contest"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contests.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
contests:
  - id: weekly
    name: Weekly Sprint
    entry_fee: "25.50"
    start_date: "2026-01-05"
    end_date: "2026-01-09"
  - id: free
    name: Free For All
    entry_fee: "0"
    start_date: "2026-01-01"
    end_date: "2026-12-31"
`)

	catalog, err := contest.LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 contests, got %d", len(catalog))
	}
	if catalog[0].ID != "weekly" || catalog[0].Name != "Weekly Sprint" {
		t.Errorf("unexpected first contest: %+v", catalog[0])
	}
	if catalog[0].EntryFee.String() != "25.5" {
		t.Errorf("expected fee 25.5, got %s", catalog[0].EntryFee)
	}
	if !catalog[1].EntryFee.IsZero() {
		t.Errorf("expected zero fee, got %s", catalog[1].EntryFee)
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	cases := map[string]string{
		"negative fee": `
contests:
  - {id: a, name: A, entry_fee: "-1", start_date: "2026-01-01", end_date: "2026-02-01"}
`,
		"bad fee": `
contests:
  - {id: a, name: A, entry_fee: "lots", start_date: "2026-01-01", end_date: "2026-02-01"}
`,
		"missing id": `
contests:
  - {name: A, entry_fee: "1", start_date: "2026-01-01", end_date: "2026-02-01"}
`,
		"window inverted": `
contests:
  - {id: a, name: A, entry_fee: "1", start_date: "2026-02-01", end_date: "2026-01-01"}
`,
		"empty": `contests: []`,
	}

	for name, content := range cases {
		if _, err := contest.LoadCatalog(writeCatalog(t, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := contest.LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := contest.DefaultCatalog()
	if len(catalog) != 2 {
		t.Fatalf("expected 2 default contests, got %d", len(catalog))
	}
	if _, err := contest.NewRegistry(catalog); err != nil {
		t.Errorf("default catalog should build a registry: %v", err)
	}
}
