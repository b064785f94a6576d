package models

// Group represents a household sharing expenses.
// Users join a group with its invite code and may belong to several groups.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Flat 4B").
	Name string

	// InviteCode is the short code other users enter to join.
	InviteCode string

	// Members is the list of member user IDs, in join order.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
