package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("episode_list",
	mcp.WithDescription("List local episodes, most recent first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max items to return (default 20, max 200)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithString("subject", mcp.Description("Only episodes tagged with this subject")),
)

var fetchToolDef = mcp.NewTool("episode_fetch",
	mcp.WithDescription("Fetch one local episode record by archive identifier."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("identifier", mcp.Required(), mcp.Description("Archive item identifier")),
	mcp.WithBoolean("include_body", mcp.Description("Include the markdown body (default true)")),
	mcp.WithBoolean("public", mcp.Description("Include the rendered HTML view")),
)

var normalizeToolDef = mcp.NewTool("episode_normalize",
	mcp.WithDescription("Fill missing slugs and excerpts and move records to canonical file names."),
	mcp.WithDestructiveHintAnnotation(false),
)

var syncToolDef = mcp.NewTool("catalog_sync",
	mcp.WithDescription("Run one reconciliation pass: fetch the archive catalog, update download counts, create and announce new episodes."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(true),
)

var deliveriesToolDef = mcp.NewTool("delivery_list",
	mcp.WithDescription("List recorded publish attempts, most recent first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("identifier", mcp.Description("Only attempts for this episode")),
	mcp.WithString("channel", mcp.Description("Only attempts on this channel (telegram, mastodon)")),
	mcp.WithString("run_id", mcp.Description("Only attempts from this run")),
	mcp.WithNumber("limit", mcp.Description("Max items to return (default 50, max 500)")),
)

var runsToolDef = mcp.NewTool("run_list",
	mcp.WithDescription("List recorded reconciliation passes, most recent first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max items to return (default 50, max 500)")),
)
