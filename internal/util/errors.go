package util

import "errors"

// 引擎错误分类，服务层通过 fmt.Errorf("%w: ...") 包装，控制器用 errors.Is 判断
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflictRetry     = errors.New("concurrent plan mutation, retry later")
	ErrPermissionDenied  = errors.New("permission denied")
)
