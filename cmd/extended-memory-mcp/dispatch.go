package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/extended-memory/mcp-storage/internal/mcptools"
	"github.com/extended-memory/mcp-storage/internal/summary"
)

func nowUTC() time.Time { return time.Now().UTC() }

// dispatch adapts the five named tools onto rpcio.Handler's (method,
// params)->(result, error) shape. The argument structs flatten each tool's
// JSON params object; unknown fields in params are ignored.
func dispatch(ctx context.Context, tools *mcptools.Handler) func(string, json.RawMessage) (any, error) {
	return func(method string, params json.RawMessage) (any, error) {
		switch method {
		case "save_context":
			var args struct {
				Content         string   `json:"content"`
				ImportanceLevel int      `json:"importance_level"`
				ProjectID       string   `json:"project_id"`
				Tags            []string `json:"tags"`
			}
			if err := unmarshal(params, &args); err != nil {
				return nil, err
			}
			id, err := tools.SaveContext(ctx, mcptools.SaveContextArgs{
				Content:         args.Content,
				ImportanceLevel: args.ImportanceLevel,
				ProjectID:       args.ProjectID,
				Tags:            args.Tags,
			})
			if err != nil {
				return nil, err
			}
			return map[string]string{"context_id": id}, nil

		case "load_contexts":
			var args struct {
				ProjectID       string   `json:"project_id"`
				ImportanceLevel int      `json:"importance_level"`
				Limit           int      `json:"limit"`
				TagsFilter      []string `json:"tags_filter"`
				InitLoad        bool     `json:"init_load"`
			}
			if err := unmarshal(params, &args); err != nil {
				return nil, err
			}
			result, err := tools.LoadContexts(ctx, mcptools.LoadContextsArgs{
				ProjectID:       args.ProjectID,
				ImportanceLevel: args.ImportanceLevel,
				Limit:           args.Limit,
				TagsFilter:      args.TagsFilter,
				InitLoad:        args.InitLoad,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"summary":          summary.Contexts(result.Contexts, args.ProjectID, args.Limit, nowUTC()),
				"contexts":         result.Contexts,
				"init_instruction": result.InitInstruction,
			}, nil

		case "forget_context":
			var args struct {
				ContextID string `json:"context_id"`
			}
			if err := unmarshal(params, &args); err != nil {
				return nil, err
			}
			ok, err := tools.ForgetContext(ctx, args.ContextID)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"deleted": ok}, nil

		case "list_all_projects":
			projects, err := tools.ListAllProjects(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"projects": projects}, nil

		case "get_popular_tags":
			var args struct {
				Limit     int    `json:"limit"`
				MinUsage  int    `json:"min_usage"`
				ProjectID string `json:"project_id"`
			}
			if err := unmarshal(params, &args); err != nil {
				return nil, err
			}
			tags, err := tools.GetPopularTags(ctx, mcptools.GetPopularTagsArgs{
				Limit:     args.Limit,
				MinUsage:  args.MinUsage,
				ProjectID: args.ProjectID,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"summary": summary.PopularTags(tags, args.MinUsage),
				"tags":    tags,
			}, nil

		default:
			return nil, fmt.Errorf("unknown method %q", method)
		}
	}
}

func unmarshal(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
