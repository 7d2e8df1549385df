package observability

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats содержит метрики процесса плеера
type ProcessStats struct {
	StartTime time.Time
	proc      *process.Process
}

// NewProcessStats создает новый экземпляр метрик текущего процесса
func NewProcessStats() *ProcessStats {
	ps := &ProcessStats{StartTime: time.Now()}
	// Без process CPU считается по системе
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		ps.proc = proc
	}
	return ps
}

// Uptime возвращает время работы в читаемом виде
func (ps *ProcessStats) Uptime() string {
	uptime := time.Since(ps.StartTime)

	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
	return fmt.Sprintf("%dс", seconds)
}

// MemoryMB возвращает занятую кучу в MB
func (ps *ProcessStats) MemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024
}

// CPUPercent возвращает использование CPU процессом в процентах
func (ps *ProcessStats) CPUPercent() (float64, error) {
	if ps.proc != nil {
		if v, err := ps.proc.CPUPercent(); err == nil {
			return v, nil
		}
	}
	// Если не удалось получить метрику процесса, пробуем системную
	cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(cpuPercents) == 0 {
		return 0, fmt.Errorf("no cpu samples")
	}
	return cpuPercents[0], nil
}

// StatusLine: короткая строка состояния для консоли
func (ps *ProcessStats) StatusLine() string {
	cpuPct, err := ps.CPUPercent()
	if err != nil {
		return fmt.Sprintf("uptime=%s mem=%.1fMB", ps.Uptime(), ps.MemoryMB())
	}
	return fmt.Sprintf("uptime=%s mem=%.1fMB cpu=%.1f%%", ps.Uptime(), ps.MemoryMB(), cpuPct)
}

// Register публикует память и CPU процесса как Prometheus-gauge
func (ps *ProcessStats) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_heap_megabytes",
			Help:      "Занятая куча процесса в MB.",
		}, ps.MemoryMB),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "Использование CPU процессом.",
		}, func() float64 {
			v, _ := ps.CPUPercent()
			return v
		}),
	)
}
