package models

import "strings"

// Priority is the classification shown next to a patient in the queue.
// It is informational only and never used to order the queue.
type Priority string

const (
	PriorityNormal   Priority = "Normal"
	PriorityPriority Priority = "Priority"
	PriorityReturn   Priority = "Return"
)

// Status is the queue state of a patient
type Status string

const (
	StatusWaiting Status = "Waiting"
	StatusCalled  Status = "Called"
)

// Patient is a roster entry. Name is the unique key within the roster.
type Patient struct {
	Name        string   `json:"name"`
	ServiceType string   `json:"service_type"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
}

// priorityAliases maps the labels used by the clinic's original roster files
var priorityAliases = map[string]Priority{
	"normal":      PriorityNormal,
	"priority":    PriorityPriority,
	"prioritário": PriorityPriority,
	"prioritario": PriorityPriority,
	"return":      PriorityReturn,
	"retorno":     PriorityReturn,
}

// ParsePriority resolves a roster label to a Priority
func ParsePriority(label string) (Priority, bool) {
	p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(label))]
	return p, ok
}
