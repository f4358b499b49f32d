package styles

// Status icons
const (
	IconSuccess  = "✓"
	IconError    = "✗"
	IconWarning  = "⚠"
	IconInfo     = "ℹ"
	IconRunning  = "▶"
	IconPending  = "○"
	IconSkipped  = "⊘"
	IconSystem   = "●"
	IconBullet   = "•"
	IconStale    = "↻"
	IconLocked   = "⊗"
	IconUnread   = "●"
	IconRead     = " "
	IconReview   = "✎"
	IconGate     = "⚑"
	IconThinking = "…"
	IconPartial  = "◐"
)

// NodeIcon returns the icon for a pipeline node status.
func NodeIcon(status string) string {
	switch status {
	case "completed":
		return IconSuccess
	case "stale":
		return IconStale
	case "in_progress":
		return IconRunning
	case "available":
		return IconPending
	case "blocked":
		return IconLocked
	case "not_implemented":
		return IconSkipped
	default:
		return IconBullet
	}
}

// PhaseIcon returns the icon for a rolled-up phase status.
func PhaseIcon(status string) string {
	switch status {
	case "completed":
		return IconSuccess
	case "partial":
		return IconPartial
	case "available":
		return IconPending
	case "blocked":
		return IconLocked
	default:
		return IconBullet
	}
}

// InboxIcon returns the icon for an inbox item type.
func InboxIcon(itemType string) string {
	switch itemType {
	case "stale":
		return IconStale
	case "review":
		return IconReview
	case "error":
		return IconError
	case "gate_review":
		return IconGate
	default:
		return IconBullet
	}
}

// LogLevelIcon returns the appropriate icon for a log level.
func LogLevelIcon(level string) string {
	switch level {
	case "error", "ERROR":
		return IconError
	case "warn", "WARN", "warning", "WARNING":
		return IconWarning
	case "info", "INFO":
		return IconInfo
	default:
		return IconBullet
	}
}
