package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skilldepot/skilldepot/internal/client"
)

func main() {
	logger := slog.Default()

	cfg, err := NewConfig()
	if err != nil {
		logger.Error("failed to create config", "error", err)
		os.Exit(1)
	}

	tools := &toolHandler{client: client.New(cfg.ServerAddr)}

	s := server.NewMCPServer(
		"skilldepot",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithInstructions("MCP server for the skilldepot skill store. Skills are named, versioned bundles of text files. Use skilldepot_list_skills to browse, skilldepot_get_skill and skilldepot_get_skill_file to read, skilldepot_create_skill and skilldepot_update_skill to write (every write produces a new immutable version), and skilldepot_set_skill_status to activate or deactivate."),
	)

	s.AddTool(mcp.NewTool("skilldepot_list_skills",
		mcp.WithDescription("List skills, optionally filtered by a name substring. Inactive skills are hidden unless show_inactive is set."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring to match against skill names")),
		mcp.WithBoolean("show_inactive", mcp.Description("Include deactivated skills")),
		mcp.WithBoolean("detailed", mcp.Description("Return full metadata instead of name and description only")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (server caps at 100)")),
		mcp.WithNumber("offset", mcp.Description("Number of results to skip")),
	), tools.listSkills)

	s.AddTool(mcp.NewTool("skilldepot_get_skill",
		mcp.WithDescription("Get one skill's metadata, version info and file list. Defaults to the latest version."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Skill id or name")),
		mcp.WithNumber("version", mcp.Description("Version number; omit for latest")),
	), tools.getSkill)

	s.AddTool(mcp.NewTool("skilldepot_get_skill_file",
		mcp.WithDescription("Get the content of one file within a skill version. Defaults to the latest version."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Skill id or name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path within the skill, e.g. SKILL.md")),
		mcp.WithNumber("version", mcp.Description("Version number; omit for latest")),
	), tools.getSkillFile)

	s.AddTool(mcp.NewTool("skilldepot_create_skill",
		mcp.WithDescription("Create a new skill with an initial file set as version 1. Fails if a skill of the same name exists."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Unique skill name")),
		mcp.WithString("description", mcp.Description("Short description; derived from SKILL.md when omitted")),
		mcp.WithArray("files", mcp.Required(), mcp.Description(`Files of the skill: [{"path", "content", "is_executable"?, "script_language"?, "run_instructions_for_ai"?}]`)),
		mcp.WithString("changelog", mcp.Description("Changelog entry for version 1")),
	), tools.createSkill)

	s.AddTool(mcp.NewTool("skilldepot_update_skill",
		mcp.WithDescription("Apply a batch of file changes to a skill, producing a new version. Prior versions stay intact."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Skill id or name")),
		mcp.WithString("description", mcp.Description("New description; omit to keep the current one")),
		mcp.WithArray("file_changes", mcp.Description(`Changes to apply: [{"type": "add"|"update"|"delete", "path", "content"?, "is_executable"?, "script_language"?, "run_instructions_for_ai"?}]`)),
		mcp.WithString("changelog", mcp.Description("Changelog entry for the new version")),
	), tools.updateSkill)

	s.AddTool(mcp.NewTool("skilldepot_set_skill_status",
		mcp.WithDescription("Activate or deactivate a skill. Deactivated skills are hidden from default listings but keep all versions."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Skill id or name")),
		mcp.WithBoolean("active", mcp.Required(), mcp.Description("true to activate, false to deactivate")),
	), tools.setSkillStatus)

	if err := server.ServeStdio(s); err != nil {
		logger.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}
