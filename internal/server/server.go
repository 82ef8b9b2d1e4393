// Package server exposes the migration pipeline over MCP so editor agents
// can scan a project, preview a migration, and apply it. Log output must
// stay on stderr: stdout carries the JSON-RPC transport.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/migr8/migr8/internal/cache"
	"github.com/migr8/migr8/internal/config"
	"github.com/migr8/migr8/internal/graph"
	"github.com/migr8/migr8/internal/migrate"
	"github.com/migr8/migr8/internal/rules"
)

// Server wraps the MCP server and connects it to the migration pipeline.
type Server struct {
	mcp   *mcp.Server
	cfg   *config.Config
	cache *cache.Parse
}

// New creates an MCP server wired to the given config. The parse cache is
// shared across tool invocations so repeated scans of an unchanged project
// skip re-parsing.
func New(cfg *config.Config, pc *cache.Parse) (*Server, error) {
	s := &Server{cfg: cfg, cache: pc}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "migr8",
		Version: "0.1.0",
	}, nil)

	s.mcp = mcpServer
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// scanProjectArgs are the arguments for the scan_project tool.
type scanProjectArgs struct {
	RootPath string `json:"root_path,omitempty" jsonschema:"Project root to scan. Defaults to the configured root."`
}

// planMigrationArgs are the arguments for the plan_migration and
// apply_migration tools.
type planMigrationArgs struct {
	RootPath  string `json:"root_path,omitempty" jsonschema:"Project root. Defaults to the configured root."`
	RulesPath string `json:"rules_path,omitempty" jsonschema:"Path to the rule-set document. Defaults to the configured rules path."`
}

// listRulesArgs are the arguments for the list_rules tool.
type listRulesArgs struct {
	RulesPath string `json:"rules_path,omitempty" jsonschema:"Path to the rule-set document. Defaults to the configured rules path."`
}

func (s *Server) registerTools() {
	// Tool: scan_project
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "scan_project",
		Description: "Scan a project tree, build the component usage graph, and summarize files, component sites, and resolution failures.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args scanProjectArgs) (*mcp.CallToolResult, any, error) {
		root := args.RootPath
		if root == "" {
			root = s.cfg.Root
		}

		g, err := graph.Build(ctx, root, graph.BuildOptions{
			Include:      s.cfg.Include,
			Exclude:      s.cfg.Exclude,
			MaxFileBytes: s.cfg.MaxFileBytes,
			Cache:        s.cache,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil, nil
		}

		resolved := g.ResolveAll()
		unresolvedCount := 0
		byComponent := make(map[string]int)
		for _, r := range resolved {
			if r.Unresolved {
				unresolvedCount++
				continue
			}
			byComponent[r.Package+"/"+r.Exported]++
		}

		summary := fmt.Sprintf(
			"Scan complete.\n\n- Files parsed: %d\n- Parse errors: %d\n- Component sites: %d\n- Unresolved sites: %d\n- Distinct components: %d\n",
			g.FileCount(), len(g.Errors()), g.SiteCount(), unresolvedCount, len(byComponent))

		return textResult(summary), nil, nil
	})

	// Tool: plan_migration
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "plan_migration",
		Description: "Dry-run a migration rule set against a project and report which files would change. No file is written.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args planMigrationArgs) (*mcp.CallToolResult, any, error) {
		return s.runMigration(ctx, args, false)
	})

	// Tool: apply_migration
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "apply_migration",
		Description: "Apply a migration rule set to a project. Originals are snapshotted by the backup collaborator before any write.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args planMigrationArgs) (*mcp.CallToolResult, any, error) {
		return s.runMigration(ctx, args, true)
	})

	// Tool: list_rules
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_rules",
		Description: "List the migration rule sets declared in a rule-set document.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listRulesArgs) (*mcp.CallToolResult, any, error) {
		rulesPath := args.RulesPath
		if rulesPath == "" {
			rulesPath = s.cfg.Rules
		}

		doc, err := rules.Load(rulesPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading rules: %v", err)), nil, nil
		}
		sets, setErrs := rules.Compile(doc)

		type ruleInfo struct {
			Name            string `json:"name"`
			SourcePackage   string `json:"source_package"`
			SourceComponent string `json:"source_component"`
			TargetPackage   string `json:"target_package"`
			TargetComponent string `json:"target_component"`
			Transforms      int    `json:"transforms"`
		}
		infos := make([]ruleInfo, 0, len(sets))
		for _, rs := range sets {
			infos = append(infos, ruleInfo{
				Name:            rs.Name,
				SourcePackage:   rs.SourcePackage,
				SourceComponent: rs.SourceComponent,
				TargetPackage:   rs.Target.Package,
				TargetComponent: rs.Target.Component,
				Transforms:      len(rs.Rules),
			})
		}

		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("marshaling rules: %v", err)), nil, nil
		}
		text := string(data)
		for _, serr := range setErrs {
			text += fmt.Sprintf("\nskipped: %v", serr)
		}
		return textResult(text), nil, nil
	})
}

func (s *Server) runMigration(ctx context.Context, args planMigrationArgs, applyMode bool) (*mcp.CallToolResult, any, error) {
	cfg := *s.cfg
	if args.RootPath != "" {
		cfg.Root = args.RootPath
	}
	rulesPath := args.RulesPath
	if rulesPath == "" {
		rulesPath = cfg.Rules
	}

	doc, err := rules.Load(rulesPath)
	if err != nil {
		return errorResult(fmt.Sprintf("loading rules: %v", err)), nil, nil
	}
	sets, setErrs := rules.Compile(doc)

	runner := &migrate.Runner{
		Config:   &cfg,
		Sets:     sets,
		SetErrs:  setErrs,
		Cache:    s.cache,
		Reviewer: migrate.AutoConfirm{},
		Backup:   migrate.NewDirBackup(filepath.Join(cfg.Root, cfg.Output.Dir, "backup")),
	}

	proj, err := runner.Run(ctx, applyMode)
	if err != nil {
		return errorResult(fmt.Sprintf("migration failed: %v", err)), nil, nil
	}

	counts := proj.Counts()
	stats := proj.Stats()
	mode := "dry-run"
	if applyMode {
		mode = "apply"
	}
	summary := fmt.Sprintf(
		"Migration %s complete.\n\n- Files analyzed: %d of %d\n- Sites applied: %d\n- Sites skipped: %d\n- Sites unresolved: %d\n- Errors: %d\n",
		mode, stats.AnalyzedFiles, stats.TotalFiles, counts.Applied, counts.Skipped, counts.Unresolved, counts.Errored)
	for _, serr := range setErrs {
		summary += fmt.Sprintf("\nskipped rule set: %v", serr)
	}
	return textResult(summary), nil, nil
}

func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
