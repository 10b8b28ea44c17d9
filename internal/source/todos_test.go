package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

const testSessionID = "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b"

func TestParseTodoName(t *testing.T) {
	tests := []struct {
		name    string
		session string
		agent   string
		ok      bool
	}{
		{testSessionID + "-agent-" + testSessionID + ".json", testSessionID, testSessionID, true},
		{"not-a-uuid-agent-x.json", "", "", false},
		{testSessionID + ".json", "", "", false},
		{testSessionID + "-agent-.json", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, a, ok := parseTodoName(tt.name)
			if s != tt.session || a != tt.agent || ok != tt.ok {
				t.Errorf("parseTodoName() = %q, %q, %v", s, a, ok)
			}
		})
	}
}

func TestReadTodos(t *testing.T) {
	root := t.TempDir()
	todosDir := filepath.Join(root, "todos")
	projects := filepath.Join(root, "projects")
	projDir := t.TempDir()

	writeLog(t, filepath.Join(projects, "-p"), testSessionID+".jsonl", time.Now(),
		`{"type":"user","cwd":"`+projDir+`"}`+"\n")

	if err := os.MkdirAll(todosDir, 0o750); err != nil {
		t.Fatal(err)
	}
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(todosDir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write(testSessionID+"-agent-"+testSessionID+".json",
		`[{"id":"1","content":"a","status":"pending","priority":"high"}]`)
	orphan := "11111111-2222-3333-4444-555555555555"
	write(orphan+"-agent-"+orphan+".json", `[]`)
	write("garbage.json", `not json`)
	write(orphan+"-agent-bad.json", `{not an array`)

	got, err := ReadTodos(todosDir, projects, NewResolver(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(got[projDir]) != 1 {
		t.Errorf("project todos = %+v", got[projDir])
	}
	if len(got[UnknownProject]) != 1 {
		t.Errorf("unknown todos = %+v", got[UnknownProject])
	}
}

func TestReadTodos_MissingDir(t *testing.T) {
	got, err := ReadTodos(filepath.Join(t.TempDir(), "none"), "", nil)
	if err != nil || got != nil {
		t.Errorf("ReadTodos() = %v, %v", got, err)
	}
}

func sampleTodoSessions() []model.SessionTodos {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []model.SessionTodos{
		{SessionID: "old", LastModified: base, Todos: []model.TodoItem{
			{ID: "x", Status: model.TodoPending, Priority: model.PriorityHigh},
		}},
		{SessionID: "new", LastModified: base.Add(time.Hour), Todos: []model.TodoItem{
			{ID: "1", Status: model.TodoCompleted, Priority: model.PriorityHigh},
			{ID: "2", Status: model.TodoPending, Priority: model.PriorityLow},
			{ID: "3", Status: model.TodoPending, Priority: model.PriorityHigh},
			{ID: "4", Status: model.TodoInProgress, Priority: model.PriorityHigh},
			{ID: "5", Status: model.TodoInProgress, Priority: model.PriorityMedium},
		}},
	}
}

func TestTodoStats(t *testing.T) {
	st := TodoStats(sampleTodoSessions())
	if st.Total != 5 || st.Completed != 1 || st.Pending != 2 || st.InProgress != 2 {
		t.Errorf("counts = %+v", st)
	}
	if st.HighPriorityPending != 1 {
		t.Errorf("HighPriorityPending = %d, want 1", st.HighPriorityPending)
	}
	if st.CompletionPercent != 20 {
		t.Errorf("CompletionPercent = %v, want 20", st.CompletionPercent)
	}
	if (TodoStats(nil) != model.ProjectTodoStats{}) {
		t.Error("empty input should give zero stats")
	}
}

func TestSortTodos(t *testing.T) {
	items := SortTodos(sampleTodoSessions())
	var ids string
	for _, it := range items {
		ids += it.ID
	}
	if ids != "43152" {
		t.Errorf("order = %s, want 43152", ids)
	}
}
