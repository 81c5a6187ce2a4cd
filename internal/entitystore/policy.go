package entitystore

// Op names an Entity Store operation.
type Op int

const (
	OpLoadProjects Op = iota
	OpLoadTasks
	OpCreateProject
	OpCreateTask
	OpUpdateProject
	OpUpdateTask
	OpDeleteProject
	OpDeleteTask
	OpReorderTasks
)

func (o Op) String() string {
	switch o {
	case OpLoadProjects:
		return "load projects"
	case OpLoadTasks:
		return "load tasks"
	case OpCreateProject:
		return "create project"
	case OpCreateTask:
		return "create task"
	case OpUpdateProject:
		return "update project"
	case OpUpdateTask:
		return "update task"
	case OpDeleteProject:
		return "delete project"
	case OpDeleteTask:
		return "delete task"
	case OpReorderTasks:
		return "reorder tasks"
	}
	return "unknown"
}

// Mode is how an operation reconciles local state with the remote.
type Mode int

const (
	// ReadThrough replaces local state with the remote listing on success.
	ReadThrough Mode = iota
	// Confirmed changes local state only after the remote accepts.
	Confirmed
	// Optimistic changes local state first and reports remote failures.
	Optimistic
)

func (m Mode) String() string {
	switch m {
	case ReadThrough:
		return "read-through"
	case Confirmed:
		return "confirmed"
	case Optimistic:
		return "optimistic"
	}
	return "unknown"
}

// ModeOf returns the reconciliation mode of op. Creates are confirmed since
// the id is assigned by the server.
func ModeOf(op Op) Mode {
	switch op {
	case OpCreateProject, OpCreateTask, OpUpdateProject, OpUpdateTask:
		return Confirmed
	case OpDeleteProject, OpDeleteTask, OpReorderTasks:
		return Optimistic
	}
	return ReadThrough
}
