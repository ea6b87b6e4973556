package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var ingestToolDef = mcp.NewTool("conversation_ingest",
	mcp.WithDescription("Record a raw conversation observation (insert-or-update by id). Safe to repeat: re-processing the same observation never creates a duplicate."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Stable conversation id (thread id or DM key)")),
	mcp.WithString("type", mcp.Required(), mcp.Description("Conversation type: email, slack-dm, or slack-mention")),
	mcp.WithString("from_user", mcp.Required(), mcp.Description("Counterparty account identifier")),
	mcp.WithString("from_name", mcp.Description("Counterparty display name")),
	mcp.WithString("subject", mcp.Description("Email subject or message preview")),
	mcp.WithString("channel_id", mcp.Description("Channel id (mentions only)")),
	mcp.WithString("channel_name", mcp.Description("Channel name (mentions only)")),
	mcp.WithNumber("last_activity", mcp.Required(), mcp.Description("Unix timestamp of the most recent message")),
	mcp.WithString("last_sender", mcp.Required(), mcp.Description("Who sent the most recent message: me or them")),
	mcp.WithString("waiting_for", mcp.Required(), mcp.Description("Whose turn it is: my-response or their-response")),
	mcp.WithObject("metadata", mcp.Description("Free-form collector-specific data")),
)

var resolveToolDef = mcp.NewTool("conversation_resolve",
	mcp.WithDescription("Mark a conversation resolved (a reply was detected). Idempotent: a second call is a no-op."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id")),
)

var pendingToolDef = mcp.NewTool("conversation_pending",
	mcp.WithDescription("List active conversations by whose turn it is, longest-waiting first. Resolved conversations never appear."),
	mcp.WithString("waiting_for", mcp.Required(), mcp.Description("my-response or their-response")),
	mcp.WithString("type", mcp.Description("Restrict to one conversation type")),
	mcp.WithNumber("older_than_seconds", mcp.Description("Only conversations idle at least this long")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
)

var statsToolDef = mcp.NewTool("conversation_stats",
	mcp.WithDescription("Aggregate counts and average age of active conversations, grouped by (type, waiting_for)."),
)

var notifyToolDef = mcp.NewTool("notification_gate",
	mcp.WithDescription("Claim an escalation tier for a conversation. Returns should_send=true exactly once per (conversation, tier); later calls are gated."),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	mcp.WithString("tier", mcp.Required(), mcp.Description("Escalation tier: immediate, 4h, daily, or escalation")),
)

var healthToolDef = mcp.NewTool("service_health",
	mcp.WithDescription("Classify every monitored service's latest heartbeat: healthy, unresponsive, error, startup-failed, or unknown."),
)

var meetingsToolDef = mcp.NewTool("meeting_upcoming",
	mcp.WithDescription("List upcoming meetings from the cached calendar snapshot, grouped when their start times nearly coincide. cache_valid=false means the caller should re-fetch the calendar first."),
	mcp.WithNumber("minutes_ahead", mcp.Required(), mcp.Description("Lookahead window in minutes")),
)
