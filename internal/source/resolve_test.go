package source

import (
	"path/filepath"
	"testing"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

func existsIn(paths ...string) ExistsFunc {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(p string) bool { return set[p] }
}

func TestResolver_CwdExisting(t *testing.T) {
	dir := t.TempDir()

	r := NewResolverWith("", OSExists)
	res := r.Resolve(Candidate{DirName: "-whatever", Cwds: []string{dir}})
	if res.Kind != model.PathResolved || res.Path != dir {
		t.Errorf("got %+v, want resolved %s", res, dir)
	}
	if got := DisplayName(res, "-whatever"); got != filepath.Base(dir) {
		t.Errorf("DisplayName = %q, want %q", got, filepath.Base(dir))
	}
}

func TestResolver_CwdOrphaned(t *testing.T) {
	r := NewResolverWith("", existsIn())
	res := r.Resolve(Candidate{DirName: "-nonexistent-xyz", Cwds: []string{"/nonexistent/xyz"}})
	if res.Kind != model.PathOrphaned {
		t.Fatalf("Kind = %v, want orphaned", res.Kind)
	}
	if res.Display != "Orphaned: /nonexistent/xyz" {
		t.Errorf("Display = %q", res.Display)
	}
	if got := DisplayName(res, "-nonexistent-xyz"); got != "xyz" {
		t.Errorf("DisplayName = %q, want xyz", got)
	}
	p := model.Project{Kind: res.Kind}
	if p.ActiveAt(p.LastActivity()) {
		t.Error("orphaned project must not be active")
	}
}

func TestResolver_NameStrategies(t *testing.T) {
	tests := []struct {
		name    string
		dirName string
		exists  []string
		home    string
		want    Resolution
	}{
		{
			name:    "absolute",
			dirName: "-home-me-code",
			exists:  []string{"/home/me/code"},
			want:    Resolution{Kind: model.PathResolved, Path: "/home/me/code", Display: "/home/me/code"},
		},
		{
			name:    "relative under workspace",
			dirName: "my-app--src",
			home:    "/h",
			exists:  []string{"/h/workspace/my app/src"},
			want:    Resolution{Kind: model.PathResolved, Path: "/h/workspace/my app/src", Display: "/h/workspace/my app/src"},
		},
		{
			name:    "relative under home wins over workspace",
			dirName: "proj",
			home:    "/h",
			exists:  []string{"/h/proj", "/h/workspace/proj"},
			want:    Resolution{Kind: model.PathResolved, Path: "/h/proj", Display: "/h/proj"},
		},
		{
			name:    "unknown",
			dirName: "-gone-away",
			want:    Resolution{Kind: model.PathUnknown, Display: "Unknown: -gone-away"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolverWith(tt.home, existsIn(tt.exists...))
			if got := r.Resolve(Candidate{DirName: tt.dirName}); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolver_CwdFallsThroughEmptyCwds(t *testing.T) {
	r := NewResolverWith("", existsIn("/a/b"))
	res := r.Resolve(Candidate{DirName: "x", Cwds: []string{"", "/", "/a/b", "/c"}})
	if res.Kind != model.PathResolved || res.Path != "/a/b" {
		t.Errorf("got %+v", res)
	}
}

func TestDisplayName_TrailingDash(t *testing.T) {
	res := Resolution{Kind: model.PathUnknown}
	if got := DisplayName(res, "weird-"); got != "weird-" {
		t.Errorf("DisplayName = %q, want whole name", got)
	}
}

func TestOSExists(t *testing.T) {
	dir := t.TempDir()
	if !OSExists(dir) {
		t.Error("temp dir should exist")
	}
	if OSExists(filepath.Join(dir, "missing")) {
		t.Error("missing path reported as existing")
	}
}
