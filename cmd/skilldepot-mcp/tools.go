package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skilldepot/skilldepot/internal/client"
)

type toolHandler struct {
	client *client.Client
}

func (h *toolHandler) listSkills(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.client.ListSkills(ctx, client.ListOptions{
		Query:        request.GetString("query", ""),
		ShowInactive: request.GetBool("show_inactive", false),
		Detailed:     request.GetBool("detailed", false),
		Limit:        request.GetInt("limit", 0),
		Offset:       request.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing skills: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"skills": entries,
		"total":  len(entries),
	})
}

func (h *toolHandler) getSkill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := h.client.GetSkill(ctx, ref, request.GetInt("version", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error getting skill: %v", err)), nil
	}
	return jsonResult(snap)
}

func (h *toolHandler) getSkillFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := h.client.GetSkillFile(ctx, ref, path, request.GetInt("version", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error getting skill file: %v", err)), nil
	}
	return jsonResult(f)
}

func (h *toolHandler) createSkill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var files []client.File
	if err := decodeArgument(request, "files", &files); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := h.client.CreateSkill(ctx, client.CreateSkillRequest{
		Name:        name,
		Description: request.GetString("description", ""),
		Files:       files,
		Changelog:   request.GetString("changelog", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating skill: %v", err)), nil
	}
	return jsonResult(snap)
}

func (h *toolHandler) updateSkill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var changes []client.FileChange
	if err := decodeArgument(request, "file_changes", &changes); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := client.UpdateSkillRequest{
		FileChanges: changes,
		Changelog:   request.GetString("changelog", ""),
	}
	if description := request.GetString("description", ""); description != "" {
		req.Description = &description
	}
	snap, err := h.client.UpdateSkill(ctx, ref, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error updating skill: %v", err)), nil
	}
	return jsonResult(snap)
}

func (h *toolHandler) setSkillStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	active, err := request.RequireBool("active")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sk, err := h.client.SetSkillStatus(ctx, ref, active)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error setting skill status: %v", err)), nil
	}
	return jsonResult(sk)
}

// decodeArgument round-trips a structured tool argument through JSON into a
// typed value. A missing argument leaves out untouched.
func decodeArgument(request mcp.CallToolRequest, key string, out any) error {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("invalid %q argument: %w", key, err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("invalid %q argument: %w", key, err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
