package service

import (
	"math"
	"studyplan_backend/internal/model"
	"time"
)

// halfSplit 以中点为界累计前后两半的分数
type halfSplit struct {
	mid                 time.Time
	firstSum, secondSum float64
	firstN, secondN     int
}

func newHalfSplit(mid time.Time) *halfSplit {
	return &halfSplit{mid: mid}
}

func (h *halfSplit) add(ts time.Time, score float64) {
	if ts.Before(h.mid) {
		h.firstSum += score
		h.firstN++
		return
	}
	h.secondSum += score
	h.secondN++
}

// delta 后半段均分减前半段均分，任一半没有数据时 ok 为 false
func (h *halfSplit) delta() (float64, bool) {
	if h.firstN == 0 || h.secondN == 0 {
		return 0, false
	}
	return h.secondSum/float64(h.secondN) - h.firstSum/float64(h.firstN), true
}

func (h *halfSplit) trend(threshold float64) model.Trend {
	d, ok := h.delta()
	if !ok {
		return model.TrendStable
	}
	switch {
	case d > threshold:
		return model.TrendImproving
	case d < -threshold:
		return model.TrendDeclining
	}
	return model.TrendStable
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// startOfDay 给定时区下当天零点
func startOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// daysBetween 两个本地日期之间相差的自然日数，不受夏令时影响
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// entriesWindow 记录覆盖的时间范围（右端加 1ns 以包含最后一条）
func entriesWindow(entries []model.LedgerEntry) model.DateRange {
	if len(entries) == 0 {
		return model.DateRange{}
	}
	start, end := entries[0].Timestamp, entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp.Before(start) {
			start = e.Timestamp
		}
		if e.Timestamp.After(end) {
			end = e.Timestamp
		}
	}
	return model.DateRange{Start: start, End: end.Add(time.Nanosecond)}
}
