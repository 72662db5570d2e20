package domain

// UserRole represents the authorization level of a user.
type UserRole string

const (
	UserRoleUser       UserRole = "USER"
	UserRoleInstructor UserRole = "INSTRUCTOR"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPERADMIN"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleInstructor, UserRoleAdmin, UserRoleSuperAdmin:
		return true
	}
	return false
}

// IsElevated is true for roles that receive admin broadcast copies.
func (r UserRole) IsElevated() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

// ElevatedRoles lists the administrator roles in a stable order.
func ElevatedRoles() []UserRole {
	return []UserRole{UserRoleAdmin, UserRoleSuperAdmin}
}

// NotificationType names both a domain event and the kind of the
// notification record it produces.
type NotificationType string

const (
	NotificationQuizAssigned             NotificationType = "quizAssigned"
	NotificationQuizGraded               NotificationType = "quizGraded"
	NotificationPasswordResetRequested   NotificationType = "passwordResetRequested"
	NotificationApplicationStatusChanged NotificationType = "applicationStatusChanged"
	NotificationTicketReplied            NotificationType = "ticketReplied"
	NotificationJobPosted                NotificationType = "jobPosted"
	NotificationMaterialAssigned         NotificationType = "materialAssigned"
	NotificationUserRegistered           NotificationType = "userRegistered"
	NotificationAdminUserCreated         NotificationType = "adminUserCreated"
	NotificationPasswordResetCompleted   NotificationType = "passwordResetCompleted"
	NotificationRoleChanged              NotificationType = "roleChanged"
)

// EventUserDeleted is published when a user row is removed. It produces no
// notification record.
const EventUserDeleted NotificationType = "userDeleted"

// NotificationTypes returns every known notification type.
func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationQuizAssigned,
		NotificationQuizGraded,
		NotificationPasswordResetRequested,
		NotificationApplicationStatusChanged,
		NotificationTicketReplied,
		NotificationJobPosted,
		NotificationMaterialAssigned,
		NotificationUserRegistered,
		NotificationAdminUserCreated,
		NotificationPasswordResetCompleted,
		NotificationRoleChanged,
	}
}

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	for _, known := range NotificationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ChangeOperation is the kind of mutation reported by a change feed.
type ChangeOperation string

const (
	OperationInsert ChangeOperation = "insert"
	OperationUpdate ChangeOperation = "update"
	OperationDelete ChangeOperation = "delete"
)

func (o ChangeOperation) String() string { return string(o) }

func (o ChangeOperation) IsValid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}
