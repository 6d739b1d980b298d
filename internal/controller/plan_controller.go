package controller

import (
	"errors"
	"io"
	"studyplan_backend/internal/service"
	"studyplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PlanController 学习计划的生成、查询与调整
type PlanController struct {
	PlanService *service.PlanService
}

func NewPlanController(planService *service.PlanService) *PlanController {
	return &PlanController{PlanService: planService}
}

// RegenerateRequest 重新生成计划的请求体
type RegenerateRequest struct {
	KeepCompletedTasks *bool `json:"keepCompletedTasks"`
	AdjustDifficulty   bool  `json:"adjustDifficulty"`
}

// authorizePlan 加载计划并确认当前用户可以访问其所属学生
func (c *PlanController) authorizePlan(ctx *gin.Context) (string, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return "", false
	}

	planID := ctx.Param("planId")
	plan, err := c.PlanService.GetPlanByID(ctx.Request.Context(), planID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return "", false
	}
	if !util.CanAccessStudent(user, plan.StudentID) {
		util.Forbidden(ctx)
		return "", false
	}
	return planID, true
}

// @Summary 生成学习计划
// @Description 根据考试信息、科目与每周学习时长生成新计划，原有计划被归档
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param plan body service.GeneratePlanRequest true "计划参数"
// @Success 201 {object} util.Response{data=model.Plan}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /plans [post]
func (c *PlanController) GeneratePlan(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GeneratePlanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// 学生本人生成计划时可以不传 studentId
	if req.StudentID == "" && user.Role == util.RoleStudent {
		req.StudentID = user.StudentID
	}
	if !util.CanAccessStudent(user, req.StudentID) {
		util.Forbidden(ctx)
		return
	}

	plan, err := c.PlanService.Generate(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, plan)
}

// @Summary 获取当前计划
// @Description 获取学生当前生效的学习计划
// @Tags 学习计划
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path string true "学生ID"
// @Success 200 {object} util.Response{data=model.Plan}
// @Failure 404 {object} util.Response
// @Router /plans/student/{studentId} [get]
func (c *PlanController) GetPlan(ctx *gin.Context) {
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

	plan, err := c.PlanService.GetPlan(ctx.Request.Context(), studentID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, plan)
}

// @Summary 更新任务状态
// @Description 更新计划中单个任务的状态与学习用时，计划完成率随之重算
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param planId path string true "计划ID"
// @Param taskId path string true "任务ID"
// @Param task body service.UpdateTaskRequest true "任务状态"
// @Success 200 {object} util.Response{data=model.Task}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /plans/{planId}/tasks/{taskId} [patch]
func (c *PlanController) UpdateTaskStatus(ctx *gin.Context) {
	planID, ok := c.authorizePlan(ctx)
	if !ok {
		return
	}

	var req service.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	task, err := c.PlanService.UpdateTaskStatus(ctx.Request.Context(), planID, ctx.Param("taskId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, task)
}

// @Summary 重新生成计划
// @Description 基于最新学习数据重排未完成任务，可选择保留已完成任务和调整难度
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param planId path string true "计划ID"
// @Param options body RegenerateRequest false "重新生成选项"
// @Success 200 {object} util.Response{data=model.Plan}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /plans/{planId}/regenerate [post]
func (c *PlanController) RegeneratePlan(ctx *gin.Context) {
	planID, ok := c.authorizePlan(ctx)
	if !ok {
		return
	}

	// 请求体可省略
	var req RegenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, err := c.PlanService.Regenerate(ctx.Request.Context(), planID, service.RegenerateOptions{
		KeepCompletedTasks: req.KeepCompletedTasks,
		AdjustDifficulty:   req.AdjustDifficulty,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, plan)
}

// @Summary 追加重点知识点
// @Description 向计划追加知识点并在空闲时段安排对应任务
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param planId path string true "计划ID"
// @Param topics body service.AddTopicsRequest true "知识点与优先级"
// @Success 200 {object} util.Response{data=model.Plan}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /plans/{planId}/topics [post]
func (c *PlanController) AddTopics(ctx *gin.Context) {
	planID, ok := c.authorizePlan(ctx)
	if !ok {
		return
	}

	var req service.AddTopicsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, err := c.PlanService.AddTopics(ctx.Request.Context(), planID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, plan)
}
