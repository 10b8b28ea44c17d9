package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

func writeLog(t *testing.T, dir, name string, mtime time.Time, lines string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestScanner_Scan(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	root := t.TempDir()
	projects := filepath.Join(root, "projects")
	real := t.TempDir()

	// resolved and recently active
	writeLog(t, filepath.Join(projects, "a"), "s1.jsonl", now.Add(-time.Hour),
		`{"type":"user","cwd":"`+real+`"}`+"\n")
	// orphaned, newer than a but never active
	writeLog(t, filepath.Join(projects, "-gone-b"), "s2.jsonl", now.Add(-time.Minute),
		`{"type":"user","cwd":"/definitely/not/here/b"}`+"\n")
	// unknown with only blank sessions: dropped
	writeLog(t, filepath.Join(projects, "-nowhere-c"), "s3.jsonl", now, "\n\n")
	// old resolved
	writeLog(t, filepath.Join(projects, "d"), "s4.jsonl", now.Add(-72*time.Hour),
		`{"cwd":"`+real+`"}`+"\n"+`{"type":"user"}`+"\n")

	s := &Scanner{ProjectsDir: projects, Resolver: NewResolver(""), Now: func() time.Time { return now }}
	got, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("projects = %d, want 3: %+v", len(got), got)
	}
	if got[0].DirName != "-gone-b" || got[1].DirName != "a" || got[2].DirName != "d" {
		t.Errorf("order = %s, %s, %s", got[0].DirName, got[1].DirName, got[2].DirName)
	}
	if got[0].Kind != model.PathOrphaned || got[0].IsActive {
		t.Errorf("orphan = %+v", got[0])
	}
	if !got[1].IsActive || got[1].Kind != model.PathResolved {
		t.Errorf("a = %+v", got[1])
	}
	if got[2].IsActive {
		t.Error("d should be inactive")
	}
	if got[2].Sessions[0].MessageCount != 2 {
		t.Errorf("d message count = %d, want 2", got[2].Sessions[0].MessageCount)
	}

	st := Stats(got)
	if st.TotalProjects != 3 || st.ActiveProjects != 1 || st.OrphanedProjects != 1 || st.TotalSessions != 3 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestScanner_ProjectFromParsedResults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dir := filepath.Join(t.TempDir(), "projects", "-x")
	// Neither log exists on disk, so everything comes from the results.
	files := []FileResult{
		{Path: filepath.Join(dir, "old.jsonl"), Lines: 4, LastCwd: "/src/app", ModTime: now.Add(-48 * time.Hour)},
		{Path: filepath.Join(dir, "new.jsonl"), Lines: 2, ModTime: now.Add(-time.Hour)},
		{Path: filepath.Join(dir, "blank.jsonl"), ModTime: now},
	}
	s := &Scanner{Resolver: NewResolverWith("", existsIn("/src/app")), Now: func() time.Time { return now }}

	p, ok := s.Project(dir, files)
	if !ok {
		t.Fatal("project dropped")
	}
	if p.Kind != model.PathResolved || p.Path != "/src/app" || p.Name != "app" || p.DirName != "-x" {
		t.Errorf("project = %+v", p)
	}
	if len(p.Sessions) != 2 || p.Sessions[0].ID != "new" || p.Sessions[1].MessageCount != 4 {
		t.Errorf("sessions = %+v", p.Sessions)
	}
	if !p.IsActive {
		t.Error("project with a session an hour old should be active")
	}
	if files[0].Path != filepath.Join(dir, "old.jsonl") {
		t.Error("Project reordered the caller's slice")
	}
}

func TestScanner_MissingRoot(t *testing.T) {
	s := &Scanner{ProjectsDir: filepath.Join(t.TempDir(), "nope")}
	got, err := s.Scan()
	if err != nil || len(got) != 0 {
		t.Errorf("Scan() = %v, %v; want empty, nil", got, err)
	}
}

func TestScanner_KeepsResolvedEmptyDir(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "proj"), 0o750); err != nil {
		t.Fatal(err)
	}
	projects := filepath.Join(t.TempDir(), "projects")
	if err := os.MkdirAll(filepath.Join(projects, "proj"), 0o750); err != nil {
		t.Fatal(err)
	}

	s := &Scanner{ProjectsDir: projects, Resolver: NewResolver(home)}
	got, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0].Sessions) != 0 || got[0].Name != "proj" {
		t.Errorf("got %+v", got)
	}
}

func TestSessionFiles_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeLog(t, dir, "old.jsonl", base, "{}\n")
	writeLog(t, dir, "new.jsonl", base.Add(time.Hour), "{}\n")
	writeLog(t, dir, "notes.txt", base.Add(2*time.Hour), "x")

	files, err := SessionFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].SessionID != "new" || files[1].SessionID != "old" {
		t.Errorf("files = %+v", files)
	}
}

func TestFindProject(t *testing.T) {
	ps := []model.Project{{Name: "api", DirName: "-src-api"}, {Name: "web", DirName: "-src-web"}}
	if p, ok := FindProject(ps, "WEB"); !ok || p.DirName != "-src-web" {
		t.Errorf("FindProject(WEB) = %+v, %v", p, ok)
	}
	if _, ok := FindProject(ps, "-src-api"); !ok {
		t.Error("lookup by dir name failed")
	}
	if _, ok := FindProject(ps, "cli"); ok {
		t.Error("unexpected match")
	}
}
