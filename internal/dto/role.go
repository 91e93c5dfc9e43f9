package dto

// RoleRequest defines or redefines one role.
type RoleRequest struct {
	Role        string `json:"role" binding:"required,min=2,max=64"`
	Description string `json:"description" binding:"max=256"`
}

// RolesRequest creates several roles in one call.
type RolesRequest struct {
	Roles []RoleRequest `json:"roles" binding:"required,min=1,dive"`
}

// RoleResponse is one catalog entry.
type RoleResponse struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// UserRolesRequest attaches or detaches roles by id.
type UserRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,uuid"`
}

// UserRolesResponse lists a user's effective role names.
type UserRolesResponse struct {
	Roles []string `json:"roles"`
}
