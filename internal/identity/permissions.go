package identity

// Flattened RESOURCE__ACTION permission keys. The catalog itself is managed
// elsewhere; these constants exist so endpoint requirement tables and seeds
// share one spelling.
const (
	PermOrganizationEdit = "ORGANIZATION__EDIT"
	PermAccessCodeView   = "ACCESS_CODE__VIEW"
	PermAccessCodeEdit   = "ACCESS_CODE__EDIT"
	PermUserView         = "USER__VIEW"
	PermUserEdit         = "USER__EDIT"
	PermProfileEdit      = "PROFILE__EDIT"
	PermMembershipEdit   = "MEMBERSHIP__EDIT"
	PermStatusEdit       = "STATUS__EDIT"
	PermRoleView         = "ROLE__VIEW"
	PermRoleEdit         = "ROLE__EDIT"
	PermLocationDataEdit = "LOCATION_DATA__EDIT"
	PermGroupEdit        = "GROUP__EDIT"
)

// BuiltinPermissions is the seeded permission catalog.
var BuiltinPermissions = []Permission{
	{Key: PermOrganizationEdit, Description: "Edit the organization details"},
	{Key: PermAccessCodeView, Description: "View access codes"},
	{Key: PermAccessCodeEdit, Description: "Edit access codes"},
	{Key: PermUserView, Description: "View any users"},
	{Key: PermUserEdit, Description: "Edit any users"},
	{Key: PermProfileEdit, Description: "Edit any profiles"},
	{Key: PermMembershipEdit, Description: "Edit memberships"},
	{Key: PermStatusEdit, Description: "Edit statuses"},
	{Key: PermRoleView, Description: "View roles"},
	{Key: PermRoleEdit, Description: "Edit roles"},
	{Key: PermLocationDataEdit, Description: "Edit location data"},
	{Key: PermGroupEdit, Description: "Edit groups"},
}
