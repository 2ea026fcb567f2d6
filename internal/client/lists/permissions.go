package lists

// CanEdit reports whether userID may edit an item written by authorID.
// Editing is reserved to the author.
func CanEdit(userID, authorID string) bool {
	return userID != "" && userID == authorID
}

// CanDelete reports whether userID may delete an item written by authorID
// inside a resource owned by ownerID. Owners may moderate other people's
// items; ownerID may be empty.
func CanDelete(userID, authorID, ownerID string) bool {
	return CanEdit(userID, authorID) || (userID != "" && userID == ownerID)
}
