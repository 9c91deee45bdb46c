package app

import (
	"os"
	"time"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	jobs := []struct {
		spec string
		fn   func()
	}{
		{"@every 30s", func() {
			go a.SchedSystemMonitorTask()
			go a.SchedProcessMonitorTask()
		}},
		{"@daily", a.SchedClearOprLogs},
		{"@hourly", a.SchedPurgeRevokedTokens},
		{"@daily", a.SchedClearReadNotifications},
	}
	for _, job := range jobs {
		if _, err := a.sched.AddFunc(job.spec, job.fn); err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge(metrics.MetricsSystemCPU, int64(_cpuuse[0]*100)) // percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.MetricsSystemMem, int64(_meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.MetricsProcessCPU, int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.MetricsProcessMem, int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedClearOprLogs keeps one year of operation logs
func (a *Application) SchedClearOprLogs() {
	res := a.gormDB.
		Where("opt_time < ?", time.Now().Add(-time.Hour*24*365)).
		Delete(&domain.SysOprLog{})
	logCleanup("operation logs", res.RowsAffected, res.Error)
}

func (a *Application) SchedPurgeRevokedTokens() {
	if a.revoked == nil {
		return
	}
	n, err := a.revoked.Purge(time.Now())
	if err != nil {
		zap.L().Error("purge revoked tokens", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("purged expired revoked tokens", zap.Int("count", n))
	}
}

// SchedClearReadNotifications drops read notifications older than 90 days
func (a *Application) SchedClearReadNotifications() {
	res := a.gormDB.
		Where("read = ? AND created_at < ?", true, time.Now().Add(-time.Hour*24*90)).
		Delete(&domain.Notification{})
	logCleanup("read notifications", res.RowsAffected, res.Error)
}

func logCleanup(what string, removed int64, err error) {
	if err != nil {
		zap.L().Error("cleanup failed", zap.String("namespace", "jobs"), zap.String("target", what), zap.Error(err))
		return
	}
	if removed > 0 {
		zap.L().Info("cleanup done", zap.String("namespace", "jobs"), zap.String("target", what), zap.Int64("count", removed))
	}
}
