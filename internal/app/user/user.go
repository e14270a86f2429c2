/*
Package user defines the read-only view of a chat participant.

Accounts are created and edited by the external identity service; this server
only reads them to list counterparties in the sidebar.
*/
package user

// User is a participant as shown to other users.
type User struct {
	// ID is the identifier issued by the identity provider.
	ID string `json:"_id"`

	// FullName is the display name.
	FullName string `json:"fullName"`

	// Email is the contact address.
	Email string `json:"email"`

	// ProfilePic is the avatar URL, empty when unset.
	ProfilePic string `json:"profilePic,omitempty"`

	// Bio is the free-form profile text.
	Bio string `json:"bio,omitempty"`
}
