package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"teamline/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default("acme")
	if cfg.Company.Name != "acme" {
		t.Fatalf("company name = %q", cfg.Company.Name)
	}
	if cfg.Leave.DefaultBalance != 20 {
		t.Fatalf("default balance = %d", cfg.Leave.DefaultBalance)
	}
	if len(cfg.Leave.Types) != 6 {
		t.Fatalf("expected 6 leave types, got %v", cfg.Leave.Types)
	}
	if cfg.Attendance.FullDayHours != 8 {
		t.Fatalf("full day hours = %v", cfg.Attendance.FullDayHours)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if !cfg.LeaveType("vacation") {
		t.Fatalf("vacation missing from defaults")
	}
	if cfg.LeaveType("sabbatical") {
		t.Fatalf("sabbatical should be unknown")
	}
}

func TestFromYAMLValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing company", "leave:\n  types: [sick]\nattendance:\n  full_day_hours: 8\n", "company.name"},
		{"no leave types", "company:\n  name: acme\nattendance:\n  full_day_hours: 8\n", "leave.types"},
		{"zero hours", "company:\n  name: acme\nleave:\n  types: [sick]\n", "full_day_hours"},
		{"bad yaml", "company: [", "invalid config yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	cfg, err := config.FromYAML([]byte(config.GenerateDefault("acme")))
	if err != nil {
		t.Fatalf("generated default must parse: %v", err)
	}
	if cfg.Company.Name != "acme" {
		t.Fatalf("company name = %q", cfg.Company.Name)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("expected nil,nil for missing file, got %v %v", cfg, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "teamline.yml"), []byte(config.GenerateDefault("acme")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("expected config, got %v %v", cfg, err)
	}
	if cfg.Company.Name != "acme" {
		t.Fatalf("company name = %q", cfg.Company.Name)
	}
}
