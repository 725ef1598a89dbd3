package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePermissionsReconcile rewrites denormalized permission lists
	// from the grant records they mirror.
	TaskTypePermissionsReconcile = "permissions:reconcile"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewPermissionsReconcileTask constructs a reconcile task. The payload is
// empty; the job always scans every account.
func NewPermissionsReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskTypePermissionsReconcile, nil)
}
