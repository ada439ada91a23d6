package constants

// TaskStatus is the canonical status for rows in classification_tasks.
type TaskStatus string

// Stable values (store these exact strings in DB).
const (
	TaskStatusPending   TaskStatus = "PENDING"   // stored, waiting for a worker
	TaskStatusRunning   TaskStatus = "RUNNING"   // picked up by a worker
	TaskStatusCompleted TaskStatus = "COMPLETED" // result persisted
	TaskStatusFailed    TaskStatus = "FAILED"    // terminal failure
)

// Terminal reports whether no further transitions are expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}
