package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/errors"
)

func TestValidateExportPath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../index.jsonl"},
		{"deep traversal", "../../etc/index.jsonl"},
		{"mid-path traversal", "/tmp/../etc/index.jsonl"},
		{"hidden in path", "/tmp/safe/../../../etc/shadow.jsonl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateExportPath(tc.path, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateExportPath_ExtensionRequired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	for _, path := range []string{"/tmp/index", "/tmp/index.json", "/tmp/index.docx"} {
		t.Run(path, func(t *testing.T) {
			err := ValidateExportPath(path, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateExportPath_DirectoryRestriction(t *testing.T) {
	cfg := config.DefaultConfig()

	err := ValidateExportPath(filepath.Join(t.TempDir(), "index.jsonl"), cfg)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidateExportPath_AllowedPaths(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	if err := ValidateExportPath(filepath.Join(allowed, "index.jsonl"), cfg); err != nil {
		t.Errorf("expected success for path in AllowedPaths, got: %v", err)
	}
	if err := ValidateExportPath(filepath.Join(t.TempDir(), "index.jsonl"), cfg); err == nil {
		t.Error("expected error for path outside AllowedPaths, got nil")
	}
}

func TestValidateExportPath_AllowUnsafePaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	if err := ValidateExportPath(filepath.Join(t.TempDir(), "index.jsonl"), cfg); err != nil {
		t.Errorf("expected success with AllowUnsafePaths=true, got: %v", err)
	}
}

func TestValidateExportPath_NestedPathRejected(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}

	sub := filepath.Join(allowed, "subdir")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	err := ValidateExportPath(filepath.Join(sub, "index.jsonl"), cfg)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidateExportPath_SymlinkRejected(t *testing.T) {
	for _, unsafe := range []bool{false, true} {
		allowed := t.TempDir()
		cfg := config.DefaultConfig()
		cfg.AllowedPaths = []string{allowed}
		cfg.AllowUnsafePaths = unsafe

		target := filepath.Join(t.TempDir(), "secret.jsonl")
		if err := os.WriteFile(target, []byte("{}"), 0600); err != nil {
			t.Fatalf("failed to create target file: %v", err)
		}
		link := filepath.Join(allowed, "index.jsonl")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}

		err := ValidateExportPath(link, cfg)
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("unsafe=%v: expected ErrInvalidRequest, got: %v", unsafe, err)
		}
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.txt", false},
		{"../file.txt", true},
		{"/home/../etc/passwd", true},
		{"./file.txt", false},
		{"file..name.txt", false},
		{"/tmp/a/b/../c.jsonl", true},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := containsTraversal(tc.path); got != tc.contains {
				t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.contains)
			}
		})
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"report", "report"},
		{"q3 report", "q3 report"},
		{"path/to/file", "path-to-file"},
		{"path\\to\\file", "path-to-file"},
		{"../../../etc/passwd", "etc-passwd"},
		{"foo\x00bar", "foobar"},
		{"../../..", "unnamed"},
		{"bericht-übersicht", "bericht-übersicht"},
		{"a---b", "a-b"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := SanitizeForFilename(tc.input); got != tc.expected {
				t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
