// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := ConfigDir(), "/custom/config/iucal"; got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/test")
	if got, want := ConfigDir(), "/home/test/.config/iucal"; got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestDefaultConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := DefaultConfigFile(), "/custom/config/iucal/config.yaml"; got != want {
		t.Errorf("DefaultConfigFile() = %q, want %q", got, want)
	}
}

func TestFindConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	if got := FindConfigFile(); got != "" {
		t.Fatalf("FindConfigFile() = %q before the file exists", got)
	}

	dir := filepath.Join(base, "iucal")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte("http:\n  addr: \":8080\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(); got != path {
		t.Errorf("FindConfigFile() = %q, want %q", got, path)
	}
}

func TestFindConfigFile_IgnoresDirectory(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	if err := os.MkdirAll(filepath.Join(base, "iucal", ConfigFileName), 0o700); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != "" {
		t.Errorf("FindConfigFile() = %q, want empty for a directory", got)
	}
}
