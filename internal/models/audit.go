package models

import "time"

// Activity actions recorded in the audit trail.
const (
	ActivityActionCreate = "create"
	ActivityActionUpdate = "update"
	ActivityActionDelete = "delete"
)

// Activity resources recorded in the audit trail.
const (
	ActivityResourceComplaint = "complaint"
	ActivityResourceResponse  = "response"
	ActivityResourceCategory  = "category"
	ActivityResourceUser      = "user"
)

// ActivityLog represents an audit trail record.
type ActivityLog struct {
	ID           string    `db:"id" json:"id"`
	Action       string    `db:"action" json:"action"`
	Resource     string    `db:"resource" json:"resource"`
	ResourceName string    `db:"resource_name" json:"resourceName"`
	ResourceID   string    `db:"resource_id" json:"resourceId"`
	UserID       string    `db:"user_id" json:"userId"`
	UserName     string    `db:"user_name" json:"userName"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	Limit    int
	Resource string
	UserID   string
}
