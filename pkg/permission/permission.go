// Package permission defines the stable permission catalogue and the
// persistence of permission assignments.
package permission

// Permission ids are stable constants, not auto-generated: deployed client
// code references them by value. Group ids organize related leaf
// permissions and are not themselves checked at authorization time.
const (
	// User administration (group 10)
	GroupUserAdministration = 10
	PreviewUsersList        = 100
	PreviewUserDetail       = 101
	CreateUsers             = 102
	EditUsers               = 103
	DeleteUsers             = 104
	ManageUserPermissions   = 105
	UnlockUsers             = 106

	// Bulletins administration (group 20)
	GroupBulletinAdministration = 20
	PreviewBulletinsList        = 200
	PreviewBulletinDetail       = 201
	CreateBulletins             = 202
	EditBulletins               = 203
	DeleteBulletins             = 204

	// Announcements administration (group 30)
	GroupAnnouncementAdministration = 30
	PreviewAnnouncementsList        = 300
	PreviewAnnouncementDetail       = 301
	CreateAnnouncements             = 302
	EditAnnouncements               = 303
	PublishAnnouncements            = 304

	// Calendar administration (group 40)
	GroupCalendarAdministration = 40
	PreviewCalendar             = 400
	EditCalendarEntries         = 401
	DeleteCalendarEntries       = 402

	// Logs (group 50)
	GroupLogPreview = 50
	PreviewLogsList = 500
)

// Permission describes one entry of the catalogue. ParentID is zero for
// group permissions.
type Permission struct {
	ID       int
	Name     string
	ParentID int
}

// registry holds the full catalogue, loaded once at startup. The hierarchy
// is shallow: groups contain leaves, nothing deeper.
var registry = buildRegistry()

func buildRegistry() map[int]Permission {
	perms := []Permission{
		{ID: GroupUserAdministration, Name: "Users administration"},
		{ID: PreviewUsersList, Name: "PreviewUsersList", ParentID: GroupUserAdministration},
		{ID: PreviewUserDetail, Name: "PreviewUserDetail", ParentID: GroupUserAdministration},
		{ID: CreateUsers, Name: "CreateUsers", ParentID: GroupUserAdministration},
		{ID: EditUsers, Name: "EditUsers", ParentID: GroupUserAdministration},
		{ID: DeleteUsers, Name: "DeleteUsers", ParentID: GroupUserAdministration},
		{ID: ManageUserPermissions, Name: "ManageUserPermissions", ParentID: GroupUserAdministration},
		{ID: UnlockUsers, Name: "UnlockUsers", ParentID: GroupUserAdministration},

		{ID: GroupBulletinAdministration, Name: "Bulletins administration"},
		{ID: PreviewBulletinsList, Name: "PreviewBulletinsList", ParentID: GroupBulletinAdministration},
		{ID: PreviewBulletinDetail, Name: "PreviewBulletinDetail", ParentID: GroupBulletinAdministration},
		{ID: CreateBulletins, Name: "CreateBulletins", ParentID: GroupBulletinAdministration},
		{ID: EditBulletins, Name: "EditBulletins", ParentID: GroupBulletinAdministration},
		{ID: DeleteBulletins, Name: "DeleteBulletins", ParentID: GroupBulletinAdministration},

		{ID: GroupAnnouncementAdministration, Name: "Announcements administration"},
		{ID: PreviewAnnouncementsList, Name: "PreviewAnnouncementsList", ParentID: GroupAnnouncementAdministration},
		{ID: PreviewAnnouncementDetail, Name: "PreviewAnnouncementDetail", ParentID: GroupAnnouncementAdministration},
		{ID: CreateAnnouncements, Name: "CreateAnnouncements", ParentID: GroupAnnouncementAdministration},
		{ID: EditAnnouncements, Name: "EditAnnouncements", ParentID: GroupAnnouncementAdministration},
		{ID: PublishAnnouncements, Name: "PublishAnnouncements", ParentID: GroupAnnouncementAdministration},

		{ID: GroupCalendarAdministration, Name: "Calendar administration"},
		{ID: PreviewCalendar, Name: "PreviewCalendar", ParentID: GroupCalendarAdministration},
		{ID: EditCalendarEntries, Name: "EditCalendarEntries", ParentID: GroupCalendarAdministration},
		{ID: DeleteCalendarEntries, Name: "DeleteCalendarEntries", ParentID: GroupCalendarAdministration},

		{ID: GroupLogPreview, Name: "Logs"},
		{ID: PreviewLogsList, Name: "PreviewLogsList", ParentID: GroupLogPreview},
	}

	m := make(map[int]Permission, len(perms))
	for _, p := range perms {
		m[p.ID] = p
	}
	return m
}

// Lookup returns the permission with the given id
func Lookup(id int) (Permission, bool) {
	p, ok := registry[id]
	return p, ok
}

// IsGroup reports whether the id names a group permission
func IsGroup(id int) bool {
	p, ok := registry[id]
	return ok && p.ParentID == 0
}

// Children returns the leaf permission ids belonging to a group
func Children(groupID int) []int {
	var children []int
	for id, p := range registry {
		if p.ParentID == groupID {
			children = append(children, id)
		}
	}
	return children
}

// All returns every permission in the catalogue
func All() []Permission {
	perms := make([]Permission, 0, len(registry))
	for _, p := range registry {
		perms = append(perms, p)
	}
	return perms
}
