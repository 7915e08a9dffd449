package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/synheart/synheart-stress/internal/models"
)

var (
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)

	levelStyles = map[models.StressLevel]lipgloss.Style{
		models.LevelCalculating: lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		models.LevelRest:        lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		models.LevelLow:         lipgloss.NewStyle().Foreground(lipgloss.Color("#73D13D")),
		models.LevelMedium:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")),
		models.LevelModerate:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")),
		models.LevelHigh:        lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
	}
)

func renderBar(score float64, width int) string {
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// formatSnapshot renders one snapshot as a single terminal line.
func formatSnapshot(snap models.Snapshot, color bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	level := string(snap.Stress.Level)
	if ls, ok := levelStyles[snap.Stress.Level]; ok {
		level = style(ls, level)
	}

	trend := models.TrendStable
	if snap.Stress.Trend != nil {
		trend = snap.Stress.Trend.Trend
	}

	load := models.Calculating
	if snap.CognitiveLoad != nil {
		load = fmt.Sprintf("%.2f %s", snap.CognitiveLoad.Index, snap.CognitiveLoad.Level)
	}

	return fmt.Sprintf("%s %s %s %-11s %s  %s %s  hr %s eda %s hrv %s rr %s",
		style(mutedStyle, snap.Timestamp.Format("15:04:05")),
		renderBar(float64(snap.Stress.Percentage)/100, 20),
		style(valueStyle, fmt.Sprintf("%3d%%", snap.Stress.Percentage)),
		level,
		trendArrow(trend),
		style(mutedStyle, "load"),
		load,
		fmt.Sprintf("%.0f", snap.HeartRate),
		fmt.Sprintf("%.2f", snap.EDA),
		snap.HRV,
		fmt.Sprintf("%.1f", snap.RespiratoryRate),
	)
}

func trendArrow(t models.Trend) string {
	switch t {
	case models.TrendIncreasing:
		return "↑"
	case models.TrendDecreasing:
		return "↓"
	default:
		return "→"
	}
}
