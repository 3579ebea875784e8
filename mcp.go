package domedit

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domedit/edit"
)

// NewMCPServer creates an MCP server exposing the engine's operations as
// tools, so a model can drive selection and style edits on the live page.
func NewMCPServer(e *Engine, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "domedit",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `Live selection and style-edit engine for the page under edit.

Typical flow:
- pick {action: "start"} then click elements in the browser, or select
  a known identity tag directly with select
- selection lists the current targets with their 0-based indices
- session {action: "open"} starts an edit session over the selection
- style/text preview edits live; apply commits them as revertible rules
- undo {tier: "step"} pops one preview step, {tier: "commit"} reverts a
  committed edit
- context renders a target's captured markup as markdown`,
		},
	)
	registerTools(server, e)
	return server
}

// --- tool payloads ---

type pickInput struct {
	Action string `json:"action" jsonschema:"Action: start or stop"`
}

type pickOutput struct {
	Active bool `json:"active"`
}

type selectInput struct {
	Tag string `json:"tag" jsonschema:"Identity tag of the element to select"`
}

type selectOutput struct {
	Index int `json:"index"`
}

type selectionOutput struct {
	Targets []SelectionInfo `json:"targets"`
	Count   int             `json:"count"`
}

type removeInput struct {
	Index int `json:"index" jsonschema:"0-based selection index to remove"`
}

type removeOutput struct {
	Removed   bool `json:"removed"`
	Remaining int  `json:"remaining"`
}

type sessionInput struct {
	Action  string `json:"action" jsonschema:"Action: open, apply, reset, cancel"`
	Indices []int  `json:"indices,omitempty" jsonschema:"Selection indices for open; empty means all"`
}

type sessionOutput struct {
	Open      bool          `json:"open"`
	Committed []edit.Record `json:"committed,omitempty"`
}

type styleInput struct {
	Property string `json:"property" jsonschema:"CSS property name, e.g. color"`
	Value    string `json:"value" jsonschema:"CSS value, e.g. #ff0000"`
	Label    string `json:"label,omitempty" jsonschema:"Human-readable control label for the edit summary"`
}

type textInput struct {
	Text  string `json:"text" jsonschema:"Replacement text content; markup is stripped"`
	Label string `json:"label,omitempty" jsonschema:"Human-readable label for the edit summary"`
}

type okOutput struct {
	OK bool `json:"ok"`
}

type undoInput struct {
	Tier string `json:"tier,omitempty" jsonschema:"Undo tier: step (session preview, default) or commit (durable history)"`
}

type undoOutput struct {
	Done    bool   `json:"done"`
	Summary string `json:"summary,omitempty"`
}

type contextInput struct {
	Index int `json:"index" jsonschema:"0-based selection index"`
}

type contextOutput struct {
	Markdown string `json:"markdown"`
}

func registerTools(server *mcp.Server, e *Engine) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_pick",
		Description: "Start or stop the interactive element picker in the browser.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in pickInput) (*mcp.CallToolResult, pickOutput, error) {
		switch in.Action {
		case "start":
			e.StartPicking()
		case "stop":
			e.StopPicking()
		default:
			return nil, pickOutput{}, fmt.Errorf("domedit_pick: unknown action %q", in.Action)
		}
		return nil, pickOutput{Active: e.Picking()}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_select",
		Description: "Select an element by identity tag. Re-selecting an already-selected tag returns its existing index.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in selectInput) (*mcp.CallToolResult, selectOutput, error) {
		index, err := e.SelectTag(in.Tag)
		if err != nil {
			return nil, selectOutput{}, err
		}
		return nil, selectOutput{Index: index}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_selection",
		Description: "List the currently selected targets with their 0-based indices and edit summaries.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, selectionOutput, error) {
		targets := e.Selection()
		return nil, selectionOutput{Targets: targets, Count: len(targets)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_remove",
		Description: "Remove one selection by index. Remaining targets renumber densely.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in removeInput) (*mcp.CallToolResult, removeOutput, error) {
		removed := e.Remove(in.Index)
		return nil, removeOutput{Removed: removed, Remaining: len(e.Selection())}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_session",
		Description: "Manage the edit session: open (over indices or the whole selection), apply (commit durable records and close), reset (replay baselines, stay open), cancel (restore baselines and close).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in sessionInput) (*mcp.CallToolResult, sessionOutput, error) {
		switch in.Action {
		case "open":
			if err := e.OpenSession(in.Indices...); err != nil {
				return nil, sessionOutput{}, err
			}
			return nil, sessionOutput{Open: true}, nil
		case "apply":
			records := e.ApplySession()
			return nil, sessionOutput{Open: false, Committed: records}, nil
		case "reset":
			e.ResetSession()
			return nil, sessionOutput{Open: e.SessionOpen()}, nil
		case "cancel":
			e.CancelSession()
			return nil, sessionOutput{Open: false}, nil
		default:
			return nil, sessionOutput{}, fmt.Errorf("domedit_session: unknown action %q", in.Action)
		}
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_style",
		Description: "Preview a style edit on every session target. Nothing is committed until domedit_session apply.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in styleInput) (*mcp.CallToolResult, okOutput, error) {
		if !e.SessionOpen() {
			return nil, okOutput{}, fmt.Errorf("domedit_style: no open session")
		}
		e.SetProperty(in.Property, in.Value, in.Label)
		return nil, okOutput{OK: true}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_text",
		Description: "Preview a text-content edit on eligible (leaf) session targets. Input is sanitized to plain text.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in textInput) (*mcp.CallToolResult, okOutput, error) {
		if !e.SessionOpen() {
			return nil, okOutput{}, fmt.Errorf("domedit_text: no open session")
		}
		e.SetText(in.Text, in.Label)
		return nil, okOutput{OK: true}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_undo",
		Description: "Undo: tier step pops one session preview micro-edit (falling through to the committed history when the preview stack is empty); tier commit reverts the most recent committed edit directly.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in undoInput) (*mcp.CallToolResult, undoOutput, error) {
		switch in.Tier {
		case "", "step":
			return nil, undoOutput{Done: e.UndoStep()}, nil
		case "commit":
			rec, ok := e.Undo()
			return nil, undoOutput{Done: ok, Summary: rec.Summary}, nil
		default:
			return nil, undoOutput{}, fmt.Errorf("domedit_undo: unknown tier %q", in.Tier)
		}
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_redo",
		Description: "Re-apply the next committed edit in the redo tail.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, undoOutput, error) {
		rec, ok := e.Redo()
		return nil, undoOutput{Done: ok, Summary: rec.Summary}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "domedit_context",
		Description: "Render a selected target's captured markup as markdown for context.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in contextInput) (*mcp.CallToolResult, contextOutput, error) {
		md, err := e.ContextMarkdown(in.Index)
		if err != nil {
			return nil, contextOutput{}, err
		}
		return nil, contextOutput{Markdown: md}, nil
	})
}
