package shared

import "github.com/alexxvives/akademo_api/model"

const (
	UserID      = "user_id"
	UserRole    = "user_role"
	Fingerprint = "fingerprint"
	DeviceInfo  = "device_info"

	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAcademy = "ACADEMY"
	RoleAdmin   = "ADMIN"

	PlayStatusActive  = model.PlayStatusActive
	PlayStatusBlocked = model.PlayStatusBlocked

	ElapsedSourceServerObserved = "SERVER_OBSERVED"
	ElapsedSourceClientReported = "CLIENT_REPORTED"

	DefaultWatchMultiplier = 2.0
)
