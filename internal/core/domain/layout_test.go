package domain_test

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/wireit-go/wireit/internal/core/domain"
)

func TestLayoutPaths(t *testing.T) {
	pkg := filepath.Join("a", "b")
	name := "build"
	hexName := hex.EncodeToString([]byte(name))

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "ScriptStateDir",
			got:      domain.ScriptStateDir(pkg, name),
			expected: filepath.Join(pkg, ".wireit", hexName),
		},
		{
			name:     "StateFilePath",
			got:      domain.StateFilePath(pkg, name),
			expected: filepath.Join(pkg, ".wireit", hexName, "state"),
		},
		{
			name:     "StdoutFilePath",
			got:      domain.StdoutFilePath(pkg, name),
			expected: filepath.Join(pkg, ".wireit", hexName, "stdout"),
		},
		{
			name:     "StderrFilePath",
			got:      domain.StderrFilePath(pkg, name),
			expected: filepath.Join(pkg, ".wireit", hexName, "stderr"),
		},
		{
			name:     "CacheDir",
			got:      domain.CacheDir(pkg, name),
			expected: filepath.Join(pkg, ".wireit", hexName, "cache"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}
