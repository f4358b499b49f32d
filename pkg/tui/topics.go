package tui

const (
	TopicStudioEvents = "studioctl.events"
	TopicUIMessages   = "studioctl.ui.msgs"
	TopicUIActions    = "studioctl.ui.actions"
)

const (
	DomainTypeProjectionsUpdated = "projections.updated"
	DomainTypeChatUpdated        = "chat.updated"
	DomainTypeActionResult       = "action.result"
	DomainTypeActionLog          = "action.log"
)

const (
	UITypeProjections  = "tui.projections"
	UITypeChatMessage  = "tui.chat.message"
	UITypeActionResult = "tui.action.result"
	UITypeEventAppend  = "tui.event.append"

	UITypeChatSendRequest      = "tui.chat.send"
	UITypeActionConfirmRequest = "tui.action.confirm"
	UITypeMarkReadRequest      = "tui.inbox.mark_read"
	UITypeRefreshRequest       = "tui.refresh"
)
