package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("BAKERY_SHOP", "sunrise.myshopify.com")

	got := ExpandEnv(map[string]any{
		"shop":     "${BAKERY_SHOP}",
		"token":    "${BAKERY_TOKEN_UNSET:none}",
		"missing":  "${BAKERY_MISSING_UNSET}",
		"literal":  "prefix ${BAKERY_SHOP}",
		"members":  []any{map[string]any{"name": "${BAKERY_SHOP}"}},
		"servings": 12,
	})

	want := map[string]any{
		"shop":     "sunrise.myshopify.com",
		"token":    "none",
		"missing":  "",
		"literal":  "prefix ${BAKERY_SHOP}",
		"members":  []any{map[string]any{"name": "sunrise.myshopify.com"}},
		"servings": 12,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandEnv() = %#v, want %#v", got, want)
	}
}

func TestReadFileYAML(t *testing.T) {
	t.Setenv("TEAM_STORE_NAME", "Sunrise Bakery")

	path := filepath.Join(t.TempDir(), "bakery.yaml")
	doc := "team_type: bakery\nleader_config:\n  store_name: ${TEAM_STORE_NAME}\nmembers:\n  - type: sales_forecasting\n    name: Forecaster\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got["team_type"] != "bakery" {
		t.Fatalf("team_type = %v", got["team_type"])
	}
	leader, _ := got["leader_config"].(map[string]any)
	if leader["store_name"] != "Sunrise Bakery" {
		t.Fatalf("leader_config = %#v", got["leader_config"])
	}
	members, _ := got["members"].([]any)
	if len(members) != 1 {
		t.Fatalf("members = %#v", got["members"])
	}
}

func TestReadFileRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "team.toml")
	if err := os.WriteFile(path, []byte("team_type = \"bakery\""), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatal("expected an error for a .toml file")
	}
}

func TestExportEnvironmentKeepsProcessValues(t *testing.T) {
	t.Setenv("BAKERY_PORT", "9090")
	t.Setenv("BAKERY_REGION", "")
	os.Unsetenv("BAKERY_REGION")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("BAKERY_PORT=8080\nBAKERY_REGION=north\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("BAKERY_PORT"); got != "9090" {
		t.Fatalf("BAKERY_PORT = %q, want the process value", got)
	}
	if got := os.Getenv("BAKERY_REGION"); got != "north" {
		t.Fatalf("BAKERY_REGION = %q, want the file value", got)
	}
}
