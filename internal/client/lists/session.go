package lists

import (
	"context"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// Session is what the controllers need from the session store.
type Session interface {
	IsAuthenticated() bool
	User() *models.User
	UpdateUserInfo(ctx context.Context, patch models.UserPatch) error
}

func currentUserID(s Session) string {
	if u := s.User(); u != nil {
		return u.ID
	}
	return ""
}
