package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionSize != DefaultConfig().SessionSize {
		t.Fatalf("SessionSize = %d, want %d", cfg.SessionSize, DefaultConfig().SessionSize)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"session_size": 30}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionSize != 30 {
		t.Fatalf("SessionSize = %d, want %d", cfg.SessionSize, 30)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["review_remove", "session_grade"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "review_remove" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "review_remove")
	}
	if cfg.DisabledTools[1] != "session_grade" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "session_grade")
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 0 {
		t.Fatalf("DisabledTools = %v, want nil or empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	// Global config
	globalConfig := `{"session_size": 40, "disabled_tools": ["review_remove"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Repo config at repoRoot/.drill/config.json
	drillDir := filepath.Join(repoRoot, ".drill")
	if err := os.MkdirAll(drillDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"session_size": 25, "disabled_tools": ["session_grade"]}`
	if err := os.WriteFile(filepath.Join(drillDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.SessionSize != 25 {
		t.Errorf("SessionSize = %d, want 25 (repo override)", cfg.SessionSize)
	}

	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir() // No config file

	globalConfig := `{"session_size": 40, "disabled_tools": ["review_remove"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.SessionSize != 40 {
		t.Errorf("SessionSize = %d, want 40", cfg.SessionSize)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "review_remove" {
		t.Errorf("DisabledTools = %v, want [review_remove]", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_OnlyRepo(t *testing.T) {
	globalDir := t.TempDir() // No config file
	repoRoot := t.TempDir()

	// Repo config at repoRoot/.drill/config.json
	drillDir := filepath.Join(repoRoot, ".drill")
	if err := os.MkdirAll(drillDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["session_grade", "item_add"]}`
	if err := os.WriteFile(filepath.Join(drillDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Default value preserved
	if cfg.SessionSize != 20 {
		t.Errorf("SessionSize = %d, want 20 (default)", cfg.SessionSize)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// All defaults
	if cfg.SessionSize != 20 {
		t.Errorf("SessionSize = %d, want 20", cfg.SessionSize)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{SessionSize: 30, DBMaxOpenConns: 5}
	overlay := &Config{SessionSize: 25} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.SessionSize != 25 {
		t.Errorf("SessionSize = %d, want 25 (overlay)", result.SessionSize)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	base := &Config{DisableGenreDiversity: true}
	overlay := &Config{DisableGenreDiversity: false, AllowUnsafePaths: true}

	result := Merge(base, overlay)

	if !result.DisableGenreDiversity {
		t.Error("DisableGenreDiversity should be true (base OR overlay)")
	}
	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}
}

func TestMerge_AllowedPaths(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/data/exports"}}
	overlay := &Config{AllowedPaths: []string{"/data/exports", "/srv/drill"}}

	result := Merge(base, overlay)

	if len(result.AllowedPaths) != 2 {
		t.Errorf("AllowedPaths = %v, want 2 entries", result.AllowedPaths)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"review_remove", "session_grade"}}
	overlay := &Config{DisabledTools: []string{"session_grade", "item_add"}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	// Check all three are present
	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"review_remove", "session_grade", "item_add"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestFindRepoConfig_InCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	drillDir := filepath.Join(tmpDir, ".drill")
	if err := os.MkdirAll(drillDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(drillDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	found := FindRepoConfig(tmpDir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.drill/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	drillDir := filepath.Join(tmpDir, ".drill")
	if err := os.MkdirAll(drillDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(drillDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Start from subdir, should find config in parent
	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	// No .drill directory

	found := FindRepoConfig(tmpDir)
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	// Create: tmpDir/.drill/config.json with disabled_tools
	//         tmpDir/subdir/
	tmpDir := t.TempDir()
	globalDir := t.TempDir() // Separate global dir

	drillDir := filepath.Join(tmpDir, ".drill")
	if err := os.MkdirAll(drillDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["review_remove"]}`
	if err := os.WriteFile(filepath.Join(drillDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Load from subdir, should find repo config in parent
	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "review_remove" {
		t.Errorf("DisabledTools = %v, want [review_remove]", cfg.DisabledTools)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SessionSize != 20 || cfg.MaxItemsPerPassage != 2 || cfg.MinUniquePassagePercent != 60 {
		t.Errorf("selection defaults = %+v", cfg)
	}
	if cfg.AccuracyWindow != 100 || cfg.ReviewLimit != 50 {
		t.Errorf("AccuracyWindow/ReviewLimit = %d/%d, want 100/50", cfg.AccuracyWindow, cfg.ReviewLimit)
	}
	if cfg.DisableGenreDiversity {
		t.Error("genre diversity should be on by default")
	}
}

func TestMerge_StringScalar(t *testing.T) {
	base := &Config{WebAddr: "127.0.0.1:8377"}

	if got := Merge(base, &Config{}).WebAddr; got != "127.0.0.1:8377" {
		t.Errorf("WebAddr = %q, want base", got)
	}
	if got := Merge(base, &Config{WebAddr: ":9000"}).WebAddr; got != ":9000" {
		t.Errorf("WebAddr = %q, want overlay", got)
	}
}

func TestMerge_ExtraConnectivesTrimmed(t *testing.T) {
	base := &Config{ExtraConnectives: []string{" whilst ", "thereby"}}
	overlay := &Config{ExtraConnectives: []string{"thereby", "", "hitherto"}}

	got := Merge(base, overlay).ExtraConnectives
	want := []string{"whilst", "thereby", "hitherto"}
	if len(got) != len(want) {
		t.Fatalf("ExtraConnectives = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExtraConnectives[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadWithRepo_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"negative per-passage cap", `{"max_items_per_passage": -1}`, "max_items_per_passage"},
		{"unique percent above 100", `{"min_unique_passage_percent": 150}`, "min_unique_passage_percent"},
		{"negative session size", `{"session_size": -5}`, "session_size"},
		{"negative review limit", `{"review_limit": -1}`, "review_limit"},
		{"negative pool size", `{"db_max_open_conns": -2}`, "db_max_open_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globalDir := t.TempDir()
			if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := LoadWithRepo(globalDir, t.TempDir())
			if err == nil {
				t.Fatal("LoadWithRepo() error = nil, want invalid config")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}

			if _, err := Load(globalDir); err == nil {
				t.Error("Load() error = nil, want invalid config")
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}
