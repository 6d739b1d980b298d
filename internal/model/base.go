package model

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace 计划内任务/目标的确定性 ID 命名空间
var idNamespace = uuid.MustParse("6f1c2a0e-5d7b-4c38-9a0e-3b8f1e2d4c57")

func GenerateUUID() string {
	return uuid.New().String()
}

// DeterministicID 同一组片段总是得到同一个 ID，重新生成计划时任务/目标身份保持稳定
func DeterministicID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "/"))).String()
}
