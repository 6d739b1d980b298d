package util

const (
	DateFormat  = "2006-01-02"
	TimeFormat  = "2006-01-02 15:04:05"
	ClockFormat = "15:04"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 权限角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleService = "service"
	RoleAdmin   = "admin"
)

// MimeJSON 计划归档快照的内容类型
const MimeJSON = "application/json"
