package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"a.py", KindRegular},
		{"__init__.py", KindRegular},
		{"__DELETED_a.py", KindSoftDeleted},
		{"__DELETED___init__.py", KindSoftDeleted},
		{"__INITIAL___init__.py", KindInitialBackup},
		{"__INITIAL_mod.py", KindInitialBackup},
	}

	for _, tt := range tests {
		if got := Classify(tt.name); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOriginalName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.py", "a.py"},
		{"__DELETED_a.py", "a.py"},
		{"__INITIAL___init__.py", "__init__.py"},
		{"__DELETED___init__.py", "__init__.py"},
	}

	for _, tt := range tests {
		if got := OriginalName(tt.name); got != tt.want {
			t.Errorf("OriginalName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]string{
		"__init__.py":             "from demo import a",
		"a.py":                    "a = 1",
		"__DELETED_b.py":          "b = 2",
		"__INITIAL___init__.py":   "from demo import a, b",
		"sub/__init__.py":         "",
		"sub/__DELETED_inner.py":  "inner = 3",
	}

	for path, content := range files {
		fullPath := filepath.Join(tmpDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	results, err := Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != len(files) {
		t.Fatalf("Scan() returned %d files, want %d", len(results), len(files))
	}

	byPath := make(map[string]FileInfo, len(results))
	for _, f := range results {
		byPath[f.Path] = f
	}

	if f := byPath["a.py"]; f.Kind != KindRegular || f.IsInit {
		t.Errorf("a.py classified as %+v", f)
	}
	if f := byPath["__init__.py"]; f.Kind != KindRegular || !f.IsInit {
		t.Errorf("__init__.py classified as %+v", f)
	}
	if f := byPath["__DELETED_b.py"]; f.Kind != KindSoftDeleted {
		t.Errorf("__DELETED_b.py classified as %+v", f)
	}
	if f := byPath["__INITIAL___init__.py"]; f.Kind != KindInitialBackup {
		t.Errorf("__INITIAL___init__.py classified as %+v", f)
	}
	if f := byPath[filepath.Join("sub", "__DELETED_inner.py")]; f.Kind != KindSoftDeleted {
		t.Errorf("sub/__DELETED_inner.py classified as %+v", f)
	}
	if f := byPath["a.py"]; f.Size != int64(len("a = 1")) {
		t.Errorf("a.py size = %d", f.Size)
	}
}

func TestFindInitFiles(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		"__init__.py",
		"a.py",
		"sub/__init__.py",
		"gone/__DELETED___init__.py",
	}
	for _, path := range files {
		fullPath := filepath.Join(tmpDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(""), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	inits, err := FindInitFiles(tmpDir)
	if err != nil {
		t.Fatalf("FindInitFiles() error = %v", err)
	}
	if len(inits) != 2 {
		t.Fatalf("FindInitFiles() returned %d files, want 2: %v", len(inits), inits)
	}
	for _, init := range inits {
		if filepath.Base(init) != InitFileName {
			t.Errorf("unexpected init file %s", init)
		}
	}
}
