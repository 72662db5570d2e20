package watcher

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// Watched collections.
const (
	CollectionQuizAssignments     = "quiz_assignments"
	CollectionQuizAttempts        = "quiz_attempts"
	CollectionPasswordResetTokens = "password_reset_tokens"
	CollectionApplications        = "applications"
	CollectionTickets             = "tickets"
	CollectionJobs                = "jobs"
	CollectionMaterials           = "materials"
	CollectionUsers               = "users"
)

// DefaultFanOutPageSize is used when a non-positive page size is given.
const DefaultFanOutPageSize = 500

// UserLister enumerates user ids in ascending order, starting after the
// given id (uuid.Nil for the first page).
type UserLister interface {
	ListIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// TranslateFunc converts one change record into zero or more events.
type TranslateFunc func(ctx context.Context, rec domain.ChangeRecord) ([]domain.Event, error)

// PageFunc produces the events for one page of a fan-out translation,
// starting after cursor (uuid.Nil for the first page). It returns the cursor
// of the next page, or done once the last page has been read.
type PageFunc func(ctx context.Context, rec domain.ChangeRecord, cursor uuid.UUID) (events []domain.Event, next uuid.UUID, done bool, err error)

// Rule binds a collection and a set of operations to a translation. A rule
// sets either Translate or Pages; Pages is used for translations that touch
// the database once per page, so each page is published as it is read.
type Rule struct {
	Collection string
	Operations []domain.ChangeOperation
	Translate  TranslateFunc
	Pages      PageFunc
}

// Matches reports whether the rule applies to rec.
func (r Rule) Matches(rec domain.ChangeRecord) bool {
	return r.Collection == rec.Collection && slices.Contains(r.Operations, rec.Operation)
}

// TranslationError reports a change record that lacks data a rule needs.
type TranslationError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate %s: field %q %s", e.Collection, e.Field, e.Reason)
}

func (e *TranslationError) Unwrap() error { return domain.ErrValidation }

// DefaultRules returns the full translation table from watched collections
// to notification events.
func DefaultRules(users UserLister, pageSize int) []Rule {
	if pageSize <= 0 {
		pageSize = DefaultFanOutPageSize
	}

	return []Rule{
		{
			Collection: CollectionQuizAssignments,
			Operations: []domain.ChangeOperation{domain.OperationInsert},
			Translate:  quizAssigned,
		},
		{
			Collection: CollectionQuizAttempts,
			Operations: []domain.ChangeOperation{domain.OperationInsert, domain.OperationUpdate},
			Translate:  quizGraded,
		},
		{
			Collection: CollectionPasswordResetTokens,
			Operations: []domain.ChangeOperation{domain.OperationInsert},
			Translate:  passwordResetRequested,
		},
		{
			Collection: CollectionApplications,
			Operations: []domain.ChangeOperation{domain.OperationUpdate},
			Translate:  applicationStatusChanged,
		},
		{
			Collection: CollectionTickets,
			Operations: []domain.ChangeOperation{domain.OperationUpdate},
			Translate:  ticketReplied,
		},
		{
			Collection: CollectionJobs,
			Operations: []domain.ChangeOperation{domain.OperationInsert},
			Pages:      jobPosted(users, pageSize),
		},
		{
			Collection: CollectionMaterials,
			Operations: []domain.ChangeOperation{domain.OperationInsert},
			Translate:  materialAssigned,
		},
		{
			Collection: CollectionUsers,
			Operations: []domain.ChangeOperation{domain.OperationInsert},
			Translate:  userCreated,
		},
		{
			Collection: CollectionUsers,
			Operations: []domain.ChangeOperation{domain.OperationUpdate},
			Translate:  userUpdated,
		},
		{
			Collection: CollectionUsers,
			Operations: []domain.ChangeOperation{domain.OperationDelete},
			Translate:  userDeleted,
		},
	}
}

// DefaultCollections lists the collections DefaultRules watches. Each one
// holds a dedicated feed connection while its watcher runs.
func DefaultCollections() []string {
	return Collections(DefaultRules(nil, 0))
}

// Collections returns the distinct collections named by rules, in order.
func Collections(rules []Rule) []string {
	var out []string
	for _, r := range rules {
		if !slices.Contains(out, r.Collection) {
			out = append(out, r.Collection)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Translations
// ---------------------------------------------------------------------------

func quizAssigned(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	doc := document{rec: rec, fields: rec.FullDocument}
	userID := doc.requireString("user_id")
	quizID := doc.requireString("quiz_id")
	title := doc.optional("title")
	if doc.err != nil {
		return nil, doc.err
	}

	return []domain.Event{domain.NewEvent(domain.NotificationQuizAssigned, domain.Payload{
		"userId": userID,
		"quizId": quizID,
		"title":  title,
	})}, nil
}

// quizGraded fires when an attempt carries a score: either inserted already
// graded or updated with a non-null score.
func quizGraded(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	var score any
	switch rec.Operation {
	case domain.OperationInsert:
		score = rec.FullDocument["score"]
	case domain.OperationUpdate:
		if !rec.FieldUpdated("score") {
			return nil, nil
		}
		score = rec.UpdatedFields["score"]
	}
	if score == nil {
		return nil, nil
	}

	doc := document{rec: rec, fields: rec.FullDocument}
	userID := doc.requireString("user_id")
	quizID := doc.requireString("quiz_id")
	if doc.err != nil {
		return nil, doc.err
	}

	return []domain.Event{domain.NewEvent(domain.NotificationQuizGraded, domain.Payload{
		"userId": userID,
		"quizId": quizID,
		"score":  score,
	})}, nil
}

func passwordResetRequested(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	doc := document{rec: rec, fields: rec.FullDocument}
	userID := doc.requireString("user_id")
	if doc.err != nil {
		return nil, doc.err
	}

	return []domain.Event{domain.NewEvent(domain.NotificationPasswordResetRequested, domain.Payload{
		"userId": userID,
	})}, nil
}

func applicationStatusChanged(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	if !rec.FieldUpdated("status") {
		return nil, nil
	}

	doc := document{rec: rec, fields: rec.FullDocument}
	userID := doc.requireString("user_id")
	if doc.err != nil {
		return nil, doc.err
	}

	return []domain.Event{domain.NewEvent(domain.NotificationApplicationStatusChanged, domain.Payload{
		"userId":        userID,
		"applicationId": rec.DocumentKey,
		"status":        rec.UpdatedFields["status"],
	})}, nil
}

func ticketReplied(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	if !rec.FieldUpdated("latest_reply") {
		return nil, nil
	}

	doc := document{rec: rec, fields: rec.FullDocument}
	userID := doc.requireString("user_id")
	if doc.err != nil {
		return nil, doc.err
	}

	return []domain.Event{domain.NewEvent(domain.NotificationTicketReplied, domain.Payload{
		"userId":   userID,
		"ticketId": rec.DocumentKey,
		"message":  rec.UpdatedFields["latest_reply"],
	})}, nil
}

// jobPosted emits one event per registered user, one page of users at a time.
func jobPosted(users UserLister, pageSize int) PageFunc {
	return func(ctx context.Context, rec domain.ChangeRecord, after uuid.UUID) ([]domain.Event, uuid.UUID, bool, error) {
		ids, err := users.ListIDsAfter(ctx, after, pageSize)
		if err != nil {
			return nil, after, false, fmt.Errorf("list users: %w", err)
		}

		title := rec.FullDocument["title"]
		events := make([]domain.Event, 0, len(ids))
		for _, id := range ids {
			events = append(events, domain.NewEvent(domain.NotificationJobPosted, domain.Payload{
				"userId": id.String(),
				"jobId":  rec.DocumentKey,
				"title":  title,
			}))
		}
		if len(ids) < pageSize {
			return events, after, true, nil
		}
		return events, ids[len(ids)-1], false, nil
	}
}

func materialAssigned(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	doc := document{rec: rec, fields: rec.FullDocument}
	userID := doc.requireString("user_id")
	title := doc.optional("title")
	if doc.err != nil {
		return nil, doc.err
	}

	return []domain.Event{domain.NewEvent(domain.NotificationMaterialAssigned, domain.Payload{
		"userId":     userID,
		"materialId": rec.DocumentKey,
		"title":      title,
	})}, nil
}

func userCreated(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	userID := rec.DocumentKey
	if userID == "" {
		return nil, &TranslationError{Collection: rec.Collection, Field: "id", Reason: "is missing"}
	}

	events := []domain.Event{domain.NewEvent(domain.NotificationUserRegistered, domain.Payload{
		"userId": userID,
	})}

	role, _ := rec.FullDocument.String("role")
	if domain.UserRole(role).IsElevated() {
		events = append(events, domain.NewEvent(domain.NotificationAdminUserCreated, domain.Payload{
			"userId": userID,
		}))
	}
	return events, nil
}

func userUpdated(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	userID := rec.DocumentKey
	if userID == "" {
		return nil, &TranslationError{Collection: rec.Collection, Field: "id", Reason: "is missing"}
	}

	var events []domain.Event
	if rec.FieldUpdated("password_hash") {
		events = append(events, domain.NewEvent(domain.NotificationPasswordResetCompleted, domain.Payload{
			"userId": userID,
		}))
	}
	if rec.FieldUpdated("role") {
		events = append(events, domain.NewEvent(domain.NotificationRoleChanged, domain.Payload{
			"userId":  userID,
			"oldRole": rec.PreviousFields["role"],
			"newRole": rec.UpdatedFields["role"],
		}))
	}
	return events, nil
}

func userDeleted(_ context.Context, rec domain.ChangeRecord) ([]domain.Event, error) {
	if rec.DocumentKey == "" {
		return nil, &TranslationError{Collection: rec.Collection, Field: "id", Reason: "is missing"}
	}
	return []domain.Event{domain.NewEvent(domain.EventUserDeleted, domain.Payload{
		"userId": rec.DocumentKey,
	})}, nil
}

// document reads required fields from a record, keeping the first failure.
type document struct {
	rec    domain.ChangeRecord
	fields domain.Payload
	err    error
}

func (d *document) requireString(key string) string {
	if d.err != nil {
		return ""
	}
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		d.err = &TranslationError{Collection: d.rec.Collection, Field: key, Reason: "is missing"}
		return ""
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		d.err = &TranslationError{Collection: d.rec.Collection, Field: key, Reason: fmt.Sprintf("has unexpected value %v", raw)}
		return ""
	}
	return s
}

func (d *document) optional(key string) any {
	return d.fields[key]
}
