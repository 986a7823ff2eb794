package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parttracker/config"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "parttracker.yaml")
	cfg := "database:\n  driver: sqlite\n  sqlite:\n    path: " + filepath.Join(dir, "tracker.db") + "\n" +
		"web:\n  public_url: http://tracker.local:5000\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("partctl %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestSeedImportAndProgress(t *testing.T) {
	cfgPath := writeConfig(t)

	out := run(t, cfgPath, "seed", "--samples")
	if !strings.Contains(out, "Created 8 stages") || !strings.Contains(out, "4 added") {
		t.Errorf("seed output:\n%s", out)
	}
	if out := run(t, cfgPath, "seed"); !strings.Contains(out, "skipping") {
		t.Errorf("second seed output:\n%s", out)
	}

	csvPath := filepath.Join(t.TempDir(), "batch.csv")
	os.WriteFile(csvPath, []byte("part_id,product\nDT75-01-114,Tractor DT-75\nDT75-01-115,Tractor DT-75\n,\n"), 0644)
	out = run(t, cfgPath, "import", csvPath)
	if !strings.Contains(out, "Added: 1, skipped duplicates: 1") {
		t.Errorf("import output:\n%s", out)
	}

	out = run(t, cfgPath, "progress")
	if !strings.Contains(out, "Tractor DT-75") || !strings.Contains(out, "0/8") {
		t.Errorf("progress output:\n%s", out)
	}

	out = run(t, cfgPath, "qr-links", "Tractor DT-75")
	if !strings.Contains(out, "http://tracker.local:5000/scan/DT75-01-115") {
		t.Errorf("qr-links output:\n%s", out)
	}

	out = run(t, cfgPath, "routes")
	if !strings.Contains(out, "Blank → Turning → Milling → QC inspection") {
		t.Errorf("routes output:\n%s", out)
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parttracker.yaml")
	if out := run(t, path, "init-config"); !strings.Contains(out, "Wrote") {
		t.Errorf("init-config output:\n%s", out)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Web.Port != 5000 || cfg.Database.Driver != "sqlite" {
		t.Errorf("config = %+v", cfg)
	}

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "init-config"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("second init-config without --force should fail")
	}
	run(t, path, "init-config", "--force")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]column{textCol("Product"), numCol("Parts")}, [][]string{{"Gear", "3"}, {"Shaft"}}, []string{"Total", "3"})
	if !strings.Contains(out, "Gear") || !strings.Contains(out, "Shaft") || !strings.Contains(out, "Total") {
		t.Errorf("table:\n%s", out)
	}
	if !strings.Contains(out, "Product") {
		t.Errorf("header should keep its case:\n%s", out)
	}
	if strings.Contains(renderTable([]column{textCol("Part")}, [][]string{{"A"}}, nil), "Total") {
		t.Error("footer rendered without totals")
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}
