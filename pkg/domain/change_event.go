package domain

import "time"

// ChangeType says whether a ChangeEvent records a creation or a mutation.
type ChangeType string

const (
	ChangeNew     ChangeType = "new"
	ChangeUpdated ChangeType = "updated"
)

// ChangeEvent is an append-only audit entry for a ContentRecord creation or mutation.
type ChangeEvent struct {
	ID         string     `bson:"_id,omitempty" json:"id,omitempty"`
	ContentID  string     `bson:"content_id" json:"content_id"`
	ChangeType ChangeType `bson:"change_type" json:"change_type"`

	// PreviousContent is set only for ChangeUpdated.
	PreviousContent *string `bson:"previous_content,omitempty" json:"previous_content,omitempty"`
	NewContent      string  `bson:"new_content" json:"new_content"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewContentEvent builds the event for a first insert.
func NewContentEvent(contentID, content string) ChangeEvent {
	return ChangeEvent{
		ContentID:  contentID,
		ChangeType: ChangeNew,
		NewContent: content,
	}
}

// UpdatedContentEvent builds the event for an in-place content change.
func UpdatedContentEvent(contentID, previous, current string) ChangeEvent {
	return ChangeEvent{
		ContentID:       contentID,
		ChangeType:      ChangeUpdated,
		PreviousContent: &previous,
		NewContent:      current,
	}
}
