package controller

import (
	"errors"
	"io"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/service"
	"studyplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReminderController struct {
	ReminderService *service.ReminderService
}

func NewReminderController(reminderService *service.ReminderService) *ReminderController {
	return &ReminderController{ReminderService: reminderService}
}

// @Summary 评估学习提醒
// @Description 判断此刻是否需要提醒学生，决定发送时投递提醒事件，同一天最多一次
// @Tags 学习提醒
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path string true "学生ID"
// @Param preferences body model.ReminderPreferences false "本次评估使用的提醒偏好"
// @Success 200 {object} util.Response{data=model.ReminderDecision}
// @Failure 400 {object} util.Response
// @Router /reminders/{studentId}/evaluate [post]
func (c *ReminderController) Evaluate(ctx *gin.Context) {
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

	// 没有请求体时使用配置中的默认偏好
	var override *model.ReminderPreferences
	var prefs model.ReminderPreferences
	switch err := ctx.ShouldBindJSON(&prefs); {
	case err == nil:
		override = &prefs
	case !errors.Is(err, io.EOF):
		util.BadRequest(ctx, err.Error())
		return
	}

	decision, err := c.ReminderService.Evaluate(ctx.Request.Context(), studentID, override)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, decision)
}
