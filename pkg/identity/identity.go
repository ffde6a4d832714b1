// Package identity carries the request-scoped authorization context: who is
// calling and what they may do. Route handlers only ever see the named
// capability predicates, never raw permission ids.
package identity

import (
	"github.com/google/uuid"

	"github.com/parishkit/parish-idm/pkg/permission"
)

// Identity is an immutable view of the caller, built once per request from
// verified token claims (or anonymous when no token is present) and discarded
// at end of request. All checks are pure reads over the permission set.
type Identity struct {
	userID      int64
	userUUID    uuid.UUID
	displayName string
	permissions map[int]struct{}
}

// Anonymous returns the identity of an unauthenticated caller. Anonymous is
// a valid state for public endpoints, not an error.
func Anonymous() Identity {
	return Identity{}
}

// New builds an identity for an authenticated user with the given resolved
// permission-id set
func New(userID int64, userUUID uuid.UUID, displayName string, permissionIDs []int) Identity {
	perms := make(map[int]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		perms[id] = struct{}{}
	}
	return Identity{
		userID:      userID,
		userUUID:    userUUID,
		displayName: displayName,
		permissions: perms,
	}
}

// IsAuthenticated reports whether the identity belongs to a resolved user
func (i Identity) IsAuthenticated() bool {
	return i.userID > 0
}

// UserID returns the internal user id, zero when anonymous
func (i Identity) UserID() int64 {
	return i.userID
}

// UserUUID returns the public user id, uuid.Nil when anonymous
func (i Identity) UserUUID() uuid.UUID {
	return i.userUUID
}

// DisplayName returns the user's display name
func (i Identity) DisplayName() string {
	return i.displayName
}

// HasAnyPermission reports whether the caller is authenticated and holds at
// least one of the requested permissions. An empty requested set or an empty
// held set always evaluates to false.
func (i Identity) HasAnyPermission(permissionIDs ...int) bool {
	if !i.IsAuthenticated() || len(i.permissions) == 0 || len(permissionIDs) == 0 {
		return false
	}
	for _, id := range permissionIDs {
		if _, ok := i.permissions[id]; ok {
			return true
		}
	}
	return false
}

// Announcements

func (i Identity) CanPreviewAnnouncementsList() bool {
	return i.HasAnyPermission(permission.PreviewAnnouncementsList)
}

func (i Identity) CanPreviewAnnouncementDetail() bool {
	return i.HasAnyPermission(permission.PreviewAnnouncementDetail)
}

func (i Identity) CanCreateAnnouncements() bool {
	return i.HasAnyPermission(permission.CreateAnnouncements)
}

func (i Identity) CanEditAnnouncements() bool {
	return i.HasAnyPermission(permission.EditAnnouncements)
}

func (i Identity) CanPublishAnnouncements() bool {
	return i.HasAnyPermission(permission.PublishAnnouncements)
}

// CanSeeAnnouncementsSection is the composite gate for the announcements
// admin area: any finer-grained announcement permission opens it.
func (i Identity) CanSeeAnnouncementsSection() bool {
	return i.HasAnyPermission(
		permission.PreviewAnnouncementsList,
		permission.PreviewAnnouncementDetail,
		permission.CreateAnnouncements,
		permission.EditAnnouncements,
		permission.PublishAnnouncements,
	)
}

// Bulletins

func (i Identity) CanPreviewBulletinsList() bool {
	return i.HasAnyPermission(permission.PreviewBulletinsList)
}

func (i Identity) CanPreviewBulletinDetail() bool {
	return i.HasAnyPermission(permission.PreviewBulletinDetail)
}

func (i Identity) CanCreateBulletins() bool {
	return i.HasAnyPermission(permission.CreateBulletins)
}

func (i Identity) CanEditBulletins() bool {
	return i.HasAnyPermission(permission.EditBulletins)
}

func (i Identity) CanDeleteBulletins() bool {
	return i.HasAnyPermission(permission.DeleteBulletins)
}

func (i Identity) CanSeeBulletinsSection() bool {
	return i.HasAnyPermission(
		permission.PreviewBulletinsList,
		permission.PreviewBulletinDetail,
		permission.CreateBulletins,
		permission.EditBulletins,
		permission.DeleteBulletins,
	)
}

// Users

func (i Identity) CanPreviewUsersList() bool {
	return i.HasAnyPermission(permission.PreviewUsersList)
}

func (i Identity) CanPreviewUserDetail() bool {
	return i.HasAnyPermission(permission.PreviewUserDetail)
}

func (i Identity) CanCreateUsers() bool {
	return i.HasAnyPermission(permission.CreateUsers)
}

func (i Identity) CanEditUsers() bool {
	return i.HasAnyPermission(permission.EditUsers)
}

func (i Identity) CanDeleteUsers() bool {
	return i.HasAnyPermission(permission.DeleteUsers)
}

func (i Identity) CanManageUserPermissions() bool {
	return i.HasAnyPermission(permission.ManageUserPermissions)
}

func (i Identity) CanUnlockUsers() bool {
	return i.HasAnyPermission(permission.UnlockUsers)
}

func (i Identity) CanSeeUsersSection() bool {
	return i.HasAnyPermission(
		permission.PreviewUsersList,
		permission.PreviewUserDetail,
		permission.CreateUsers,
		permission.EditUsers,
		permission.DeleteUsers,
		permission.ManageUserPermissions,
		permission.UnlockUsers,
	)
}

// Calendar

func (i Identity) CanPreviewCalendar() bool {
	return i.HasAnyPermission(permission.PreviewCalendar)
}

func (i Identity) CanEditCalendar() bool {
	return i.HasAnyPermission(permission.EditCalendarEntries, permission.DeleteCalendarEntries)
}

// Logs

func (i Identity) CanPreviewLogs() bool {
	return i.HasAnyPermission(permission.PreviewLogsList)
}
