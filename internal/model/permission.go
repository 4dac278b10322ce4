package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionMediaUpload allows uploading FILE answers.
	PermissionMediaUpload Permission = "media:upload"

	// PermissionSurveysWrite allows filling in and submitting own surveys.
	PermissionSurveysWrite Permission = "surveys:write"

	// PermissionSurveysReadAll allows viewing every surveyor's responses.
	PermissionSurveysReadAll Permission = "surveys:read_all"

	// PermissionTemplatesWrite allows creating and editing draft templates.
	PermissionTemplatesWrite Permission = "templates:write"

	// PermissionTemplatesPublish allows publishing and archiving templates.
	PermissionTemplatesPublish Permission = "templates:publish"

	// PermissionFacilitiesRead allows viewing the facility registry.
	PermissionFacilitiesRead Permission = "facilities:read"

	// PermissionFacilitiesWrite allows registering and editing facilities.
	PermissionFacilitiesWrite Permission = "facilities:write"

	// PermissionRegionsWrite allows replacing the district list.
	PermissionRegionsWrite Permission = "regions:write"

	// PermissionUsersRead allows viewing user lists and details.
	PermissionUsersRead Permission = "users:read"

	// PermissionUsersWrite allows creating, updating, and deactivating users.
	PermissionUsersWrite Permission = "users:write"

	// PermissionRolesRead allows viewing roles and permissions.
	PermissionRolesRead Permission = "roles:read"

	// PermissionRolesWrite allows creating, updating, and deleting roles.
	PermissionRolesWrite Permission = "roles:write"

	// PermissionMonitorRead allows watching live survey progress.
	PermissionMonitorRead Permission = "monitor:read"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionMediaUpload,
	PermissionSurveysWrite,
	PermissionSurveysReadAll,
	PermissionTemplatesWrite,
	PermissionTemplatesPublish,
	PermissionFacilitiesRead,
	PermissionFacilitiesWrite,
	PermissionRegionsWrite,
	PermissionUsersRead,
	PermissionUsersWrite,
	PermissionRolesRead,
	PermissionRolesWrite,
	PermissionMonitorRead,
}

// IsValidPermission reports whether p names a known permission.
func IsValidPermission(p string) bool {
	for _, known := range AllPermissions {
		if string(known) == p {
			return true
		}
	}
	return false
}
