package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(New())
	if err != nil {
		t.Fatal(err)
	}
	if c.Mode != "library" || c.CheckpointDir != "temp" || c.CheckpointEvery != 100 || c.Format != "csv" {
		t.Fatalf("defaults: %+v", c)
	}
	if c.Service.Timeout != 30*time.Second || !c.Service.Headless || c.Service.Retries != 0 {
		t.Fatalf("service defaults: %+v", c.Service)
	}
	if len(c.Table()) != 20 || len(c.ResidueLibrary()) != 16 || c.CommaRune() != ',' {
		t.Fatal("default table, library or comma")
	}
}

func TestLoad_NameOffsetFollowsOffset(t *testing.T) {
	v := New()
	v.Set("offset", 92)
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.NameOffset != 92 {
		t.Fatalf("name offset = %d", c.NameOffset)
	}
	v.Set("name-offset", 0)
	if c, _ = Load(v); c.NameOffset != 0 || c.Offset != 92 {
		t.Fatalf("explicit name offset ignored: %+v", c)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("BCPRIMERS_OFFSET", "7")
	t.Setenv("BCPRIMERS_SERVICE_TIMEOUT", "5s")
	c, err := Load(New())
	if err != nil {
		t.Fatal(err)
	}
	if c.Offset != 7 || c.Service.Timeout != 5*time.Second {
		t.Fatalf("env overrides: offset=%d timeout=%s", c.Offset, c.Service.Timeout)
	}
}

func TestReadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "bcprimers.yaml")
	yaml := `
mode: listed
library: [leu, VAL]
codons:
  Leu: ctg
  Val: GTG
  Gln: CAG
service:
  retries: 2
  selectors:
    replacement: "#newcodon"
`
	if err := os.WriteFile(fn, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	v := New()
	if err := ReadFile(v, fn); err != nil {
		t.Fatal(err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	tab := c.Table()
	if cd, err := tab.Lookup("Gln"); err != nil || cd != "CAG" {
		t.Fatalf("lower-cased keys not normalized: %v %v", cd, err)
	}
	if lib := c.ResidueLibrary(); len(lib) != 2 || lib[0] != "Leu" || lib[1] != "Val" {
		t.Fatalf("library = %v", lib)
	}
	if c.Mode != "listed" || c.Service.Retries != 2 || c.Service.Selectors.Replacement != "#newcodon" {
		t.Fatalf("file values: %+v", c)
	}
}

func TestReadFile_MissingOptional(t *testing.T) {
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := ReadFile(New(), ""); err != nil {
		t.Fatalf("absent default config must be ignored: %v", err)
	}
	if err := ReadFile(New(), "nope.yaml"); err == nil {
		t.Fatal("explicit missing config must fail")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		key  string
		val  any
		want string
	}{
		{"mode", "all", "invalid mode"},
		{"format", "xlsx", "invalid format"},
		{"comma", ";;", "single character"},
		{"service.retries", -1, "retries"},
		{"service.timeout", "0s", "timeout"},
		{"library", []string{"Leu", "Sec"}, "library"},
		{"codons", map[string]string{"Leu": "CTN"}, "invalid codon"},
	}
	for _, tc := range cases {
		v := New()
		v.Set(tc.key, tc.val)
		_, err := Load(v)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s=%v: want %q error, got %v", tc.key, tc.val, tc.want, err)
		}
	}
}

func TestCommaTab(t *testing.T) {
	v := New()
	v.Set("comma", "tab")
	c, err := Load(v)
	if err != nil || c.CommaRune() != '\t' {
		t.Fatalf("tab comma: %v", err)
	}
}
