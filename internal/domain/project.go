package domain

import "time"

// Project groups generated assets. It has no lifecycle coupling to jobs
// beyond the optional foreign-key reference on Job.ProjectID.
type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	CreatedAt   time.Time
}
