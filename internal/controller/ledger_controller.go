package controller

import (
	"studyplan_backend/internal/service"
	"studyplan_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// LedgerController 学习记录写入（测试/练习/AI 问答子系统）与查询
type LedgerController struct {
	LedgerService *service.LedgerService
	Settings      *service.SettingsStore
}

func NewLedgerController(ledgerService *service.LedgerService, settings *service.SettingsStore) *LedgerController {
	return &LedgerController{LedgerService: ledgerService, Settings: settings}
}

// @Summary 写入学习记录
// @Description 由测试、练习或 AI 问答子系统上报，需携带写入密钥
// @Tags 学习记录
// @Accept json
// @Produce json
// @Param X-Ingest-Key header string true "写入密钥"
// @Param entry body service.AppendEntryRequest true "学习记录"
// @Success 201 {object} util.Response{data=model.LedgerEntry}
// @Failure 400 {object} util.Response
// @Failure 401 {object} util.Response
// @Router /ledger/entries [post]
func (c *LedgerController) AppendEntry(ctx *gin.Context) {
	var req service.AppendEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	entry, err := c.LedgerService.Append(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, entry)
}

// @Summary 查询学习记录
// @Description 按时间升序返回学生的学习记录，不传区间时返回全部历史
// @Tags 学习记录
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path string true "学生ID"
// @Param start query string false "开始时间"
// @Param end query string false "结束时间"
// @Success 200 {object} util.Response{data=[]model.LedgerEntry}
// @Router /ledger/{studentId}/entries [get]
func (c *LedgerController) ListEntries(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	studentID := ctx.Param("studentId")
	if !util.CanAccessStudent(user, studentID) {
		util.Forbidden(ctx)
		return
	}

	window, err := parseRange(ctx, c.Settings.Location(), time.Now(), 0)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	entries, err := c.LedgerService.List(ctx.Request.Context(), studentID, window)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}
