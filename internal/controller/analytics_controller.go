package controller

import (
	"fmt"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/service"
	"studyplan_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultProgressDays 未指定区间时进度统计回看的天数
const defaultProgressDays = 30

// AnalyticsController 进度、热力图与成绩预测
type AnalyticsController struct {
	ProgressService   *service.ProgressService
	HeatmapService    *service.HeatmapService
	PredictionService *service.PredictionService
	Settings          *service.SettingsStore
	Now               func() time.Time
}

func NewAnalyticsController(
	progress *service.ProgressService,
	heatmaps *service.HeatmapService,
	prediction *service.PredictionService,
	settings *service.SettingsStore,
) *AnalyticsController {
	return &AnalyticsController{
		ProgressService:   progress,
		HeatmapService:    heatmaps,
		PredictionService: prediction,
		Settings:          settings,
		Now:               time.Now,
	}
}

// parseBound 解析 RFC3339 时间或 yyyy-MM-dd 日期。
// 纯日期的结束边界包含当天，因此取次日零点
func parseBound(value string, loc *time.Location, isEnd bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(util.DateFormat, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", util.ErrInvalidInput, value)
	}
	if isEnd {
		d = d.AddDate(0, 0, 1)
	}
	return d, nil
}

// parseRange 读取 start/end 查询参数，缺省时结束于当前时刻、向前回看 fallbackDays 天。
// fallbackDays 为 0 且两个参数都缺省时返回 nil，表示全部历史
func parseRange(ctx *gin.Context, loc *time.Location, now time.Time, fallbackDays int) (*model.DateRange, error) {
	startStr, endStr := ctx.Query("start"), ctx.Query("end")
	if startStr == "" && endStr == "" && fallbackDays == 0 {
		return nil, nil
	}

	end := now
	if endStr != "" {
		t, err := parseBound(endStr, loc, true)
		if err != nil {
			return nil, err
		}
		end = t
	}

	var start time.Time
	if startStr != "" {
		t, err := parseBound(startStr, loc, false)
		if err != nil {
			return nil, err
		}
		start = t
	} else {
		days := fallbackDays
		if days == 0 {
			days = defaultProgressDays
		}
		start = end.AddDate(0, 0, -days)
	}

	return &model.DateRange{Start: start, End: end}, nil
}

func (c *AnalyticsController) authorizeStudent(ctx *gin.Context) (string, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return "", false
	}
	studentID := ctx.Param("studentId")
	if !util.CanAccessStudent(user, studentID) {
		util.Forbidden(ctx)
		return "", false
	}
	return studentID, true
}

// @Summary 学习进度报告
// @Description 统计区间内的总体得分、学习时长、进步率与学习规律性，区间缺省为最近30天
// @Tags 学习分析
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path string true "学生ID"
// @Param start query string false "开始时间 (RFC3339 或 yyyy-MM-dd)"
// @Param end query string false "结束时间 (RFC3339 或 yyyy-MM-dd，日期包含当天)"
// @Success 200 {object} util.Response{data=model.ProgressReport}
// @Failure 400 {object} util.Response
// @Router /analytics/{studentId}/progress [get]
func (c *AnalyticsController) GetProgress(ctx *gin.Context) {
	studentID, ok := c.authorizeStudent(ctx)
	if !ok {
		return
	}

	period, err := parseRange(ctx, c.Settings.Location(), c.Now(), defaultProgressDays)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	report, err := c.ProgressService.GetProgress(ctx.Request.Context(), studentID, *period)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, report)
}

// @Summary 知识点热力图
// @Description 按科目与知识点统计错误率与严重程度，不传区间时使用全部历史
// @Tags 学习分析
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path string true "学生ID"
// @Param start query string false "开始时间"
// @Param end query string false "结束时间"
// @Success 200 {object} util.Response{data=model.Heatmap}
// @Router /analytics/{studentId}/heatmap [get]
func (c *AnalyticsController) GetHeatmap(ctx *gin.Context) {
	studentID, ok := c.authorizeStudent(ctx)
	if !ok {
		return
	}

	window, err := parseRange(ctx, c.Settings.Location(), c.Now(), 0)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	heatmap, err := c.HeatmapService.GetHeatmap(ctx.Request.Context(), studentID, window)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, heatmap)
}

// @Summary 考试成绩预测
// @Description 根据进步率、规律性、薄弱点密度和剩余时间估算成绩变化
// @Tags 学习分析
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path string true "学生ID"
// @Param examType query string false "考试类型，缺省使用当前计划的考试类型"
// @Success 200 {object} util.Response{data=model.Prediction}
// @Router /analytics/{studentId}/prediction [get]
func (c *AnalyticsController) GetPrediction(ctx *gin.Context) {
	studentID, ok := c.authorizeStudent(ctx)
	if !ok {
		return
	}

	prediction, err := c.PredictionService.GetPrediction(ctx.Request.Context(), studentID, ctx.Query("examType"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, prediction)
}
