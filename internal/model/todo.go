package model

import "time"

type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Rank orders statuses for display: in progress first.
func (s TodoStatus) Rank() int {
	switch s {
	case TodoInProgress:
		return 0
	case TodoPending:
		return 1
	case TodoCompleted:
		return 2
	}
	return 3
}

type TodoPriority string

const (
	PriorityLow    TodoPriority = "low"
	PriorityMedium TodoPriority = "medium"
	PriorityHigh   TodoPriority = "high"
)

// Rank orders priorities for display: high first.
func (p TodoPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

type TodoItem struct {
	ID       string       `json:"id"`
	Content  string       `json:"content"`
	Status   TodoStatus   `json:"status"`
	Priority TodoPriority `json:"priority"`
}

// SessionTodos is the contents of one agent todo file.
type SessionTodos struct {
	SessionID    string
	AgentID      string
	ProjectPath  string
	Path         string
	LastModified time.Time
	Todos        []TodoItem
}

// ProjectTodoStats summarizes the newest todo file of a project.
type ProjectTodoStats struct {
	Total               int
	Pending             int
	InProgress          int
	Completed           int
	CompletionPercent   float64
	HighPriorityPending int
	LastModified        time.Time
}
