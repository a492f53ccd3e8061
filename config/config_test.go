package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/rankit/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeFile(t, "rankit.yaml", `
train:
  rank: 8
  num_iterations: 30
  lambda: 0.05
  alpha: 40
  seed: 12345
serve:
  top_n: 20
  blacklist: ["sku-1"]
  item_expr: 'item.attrs.in_stock == true'
`)

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}

	if cfg.Train.Rank != 8 {
		t.Errorf("Train.Rank = %d, want 8", cfg.Train.Rank)
	}
	if cfg.Train.NumIterations != 30 {
		t.Errorf("Train.NumIterations = %d, want 30", cfg.Train.NumIterations)
	}
	if cfg.Train.Lambda != 0.05 {
		t.Errorf("Train.Lambda = %v, want 0.05", cfg.Train.Lambda)
	}
	if cfg.Train.Seed == nil || *cfg.Train.Seed != 12345 {
		t.Errorf("Train.Seed = %v, want 12345", cfg.Train.Seed)
	}
	if cfg.Serve.TopN != 20 {
		t.Errorf("Serve.TopN = %d, want 20", cfg.Serve.TopN)
	}
	if len(cfg.Serve.Blacklist) != 1 || cfg.Serve.Blacklist[0] != "sku-1" {
		t.Errorf("Serve.Blacklist = %v, want [sku-1]", cfg.Serve.Blacklist)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromYAML_DefaultsPreserved(t *testing.T) {
	// 只覆盖部分字段时，其余字段保持默认值；seed 缺省为 nil（不可复现训练）
	path := writeFile(t, "partial.yaml", "train:\n  rank: 3\n")

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if cfg.Train.Rank != 3 {
		t.Errorf("Train.Rank = %d, want 3", cfg.Train.Rank)
	}
	if cfg.Train.NumIterations != Default().Train.NumIterations {
		t.Errorf("Train.NumIterations = %d, want default %d",
			cfg.Train.NumIterations, Default().Train.NumIterations)
	}
	if cfg.Train.Seed != nil {
		t.Errorf("Train.Seed = %v, want nil when unset", cfg.Train.Seed)
	}
}

func TestLoadFromJSON(t *testing.T) {
	path := writeFile(t, "rankit.json",
		`{"train": {"rank": 4, "num_iterations": 10, "lambda": 0.1}}`)

	cfg, err := LoadFromJSON(path)
	if err != nil {
		t.Fatalf("LoadFromJSON() error = %v", err)
	}
	if cfg.Train.Rank != 4 || cfg.Train.NumIterations != 10 {
		t.Errorf("Train = %+v, want rank 4, 10 iterations", cfg.Train)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(*Config) {}, wantErr: false},
		{name: "zero rank", mutate: func(c *Config) { c.Train.Rank = 0 }, wantErr: true},
		{name: "negative iterations", mutate: func(c *Config) { c.Train.NumIterations = -1 }, wantErr: true},
		{name: "negative lambda", mutate: func(c *Config) { c.Train.Lambda = -0.5 }, wantErr: true},
		{name: "zero lambda allowed", mutate: func(c *Config) { c.Train.Lambda = 0 }, wantErr: false},
		{name: "negative max concurrent", mutate: func(c *Config) { c.Train.MaxConcurrent = -4 }, wantErr: true},
		{name: "zero max concurrent allowed", mutate: func(c *Config) { c.Train.MaxConcurrent = 0 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsInvalidInput(err) {
				t.Errorf("error = %v, want INVALID_INPUT domain error", err)
			}
		})
	}
}
