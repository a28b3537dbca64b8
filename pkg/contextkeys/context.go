package contextkeys

// Keys stored on gin.Context by the auth middleware.
const (
	StructureIDKey   = "structureID"
	StructureNameKey = "structureName"
	UserIDKey        = "userID"
	RoleKey          = "role"
)
