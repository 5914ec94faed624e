/*
mcptools.go Exposes the engine as MCP tools: compute, summary, sweep, validate
and eta. Projects are passed inline as JSON or by file path.
*/

package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"github.com/ohowland/pdn_core/internal/pkg/service"
)

var errNoProject = errors.New("either project or path is required")

// Register adds every tool to s.
func Register(s *server.MCPServer, svc *service.Engine) {
	s.AddTool(computeTool(), computeHandler(svc))
	s.AddTool(summaryTool(), summaryHandler(svc))
	s.AddTool(sweepTool(), sweepHandler(svc))
	s.AddTool(validateTool(), validateHandler())
	s.AddTool(etaTool(), etaHandler())
}

func projectArgs(description string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("project",
			mcp.Description("Project document as JSON. Takes precedence over path."),
		),
		mcp.WithString("path",
			mcp.Description("Path of a project JSON file."),
		),
		mcp.WithString("scenario",
			mcp.Description("Typical, Max or Idle. Defaults to the project's current scenario."),
		),
	}
}

func readProject(req mcp.CallToolRequest) (*project.Project, error) {
	var p *project.Project
	var err error
	switch {
	case req.GetString("project", "") != "":
		p, err = project.Decode([]byte(req.GetString("project", "")))
	case req.GetString("path", "") != "":
		p, err = project.ReadFile(req.GetString("path", ""))
	default:
		return nil, errNoProject
	}
	if err != nil {
		return nil, err
	}
	if s := req.GetString("scenario", ""); s != "" {
		p.CurrentScenario = project.Scenario(s)
	}
	return p, nil
}

// --- compute ---

func computeTool() mcp.Tool {
	return mcp.NewTool("compute", projectArgs("Compute the power flow of a project. Returns the full result as JSON: per-node and per-edge figures, totals and warnings.")...)
}

func computeHandler(svc *service.Engine) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := readProject(req)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(svc.Compute(p).Result)
	}
}

// --- summary ---

func summaryTool() mcp.Tool {
	return mcp.NewTool("summary", projectArgs("List every conversion and distribution stage of a project, nested subsystems included, with losses and downstream interconnect loss.")...)
}

func summaryHandler(svc *service.Engine) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := readProject(req)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(svc.Compute(p).Summary)
	}
}

// --- sweep ---

func sweepTool() mcp.Tool {
	return mcp.NewTool("sweep", projectArgs("Compute every scenario of a project. Returns totals and warning counts per scenario.")...)
}

type sweepRow struct {
	TotalSourcePower  float64 `json:"totalSourcePower"`
	TotalLoadPower    float64 `json:"totalLoadPower"`
	OverallEfficiency float64 `json:"overallEfficiency"`
	Warnings          int     `json:"warnings"`
}

func sweepHandler(svc *service.Engine) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := readProject(req)
		if err != nil {
			return toolError(err)
		}
		rows := make(map[project.Scenario]sweepRow)
		for s, snap := range svc.Sweep(p) {
			rows[s] = sweepRow{
				TotalSourcePower:  snap.Result.TotalSourcePower,
				TotalLoadPower:    snap.Result.TotalLoadPower,
				OverallEfficiency: snap.Result.OverallEfficiency,
				Warnings:          snap.Result.WarningCount(),
			}
		}
		return jsonResult(rows)
	}
}

// --- validate ---

func validateTool() mcp.Tool {
	return mcp.NewTool("validate", projectArgs("Check a project for structural problems without computing it.")...)
}

func validateHandler() server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := readProject(req)
		if err != nil {
			return toolError(err)
		}
		issues := append(append([]string{}, p.Issues...), project.Validate(p)...)
		if len(issues) == 0 {
			return mcp.NewToolResultText("No issues."), nil
		}
		return jsonResult(issues)
	}
}

// --- eta ---

func etaTool() mcp.Tool {
	return mcp.NewTool("eta",
		mcp.WithDescription("Evaluate an efficiency model at an operating point."),
		mcp.WithString("model",
			mcp.Description(`Efficiency model as JSON, e.g. 0.95 or {"type":"curve","base":"Pout_max","points":[{"loadPct":10,"eta":0.85},{"loadPct":100,"eta":0.93}]}`),
			mcp.Required(),
		),
		mcp.WithNumber("vout", mcp.Description("Output voltage (V)"), mcp.Required()),
		mcp.WithNumber("iout", mcp.Description("Output current (A)"), mcp.Required()),
		mcp.WithNumber("iout_max", mcp.Description("Rated output current (A)")),
		mcp.WithNumber("pout_max", mcp.Description("Rated output power (W)")),
		mcp.WithNumber("phases", mcp.Description("Phase count for per-phase curves")),
	)
}

func etaHandler() server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		model := &project.EfficiencyModel{}
		if err := json.Unmarshal([]byte(req.GetString("model", "")), model); err != nil {
			return toolError(fmt.Errorf("model: %w", err))
		}
		if model.Malformed != "" {
			return toolError(fmt.Errorf("model: %s", model.Malformed))
		}
		r := efficiency.Ratings{
			Vout:       req.GetFloat("vout", 0),
			IoutMax:    req.GetFloat("iout_max", 0),
			PoutMax:    req.GetFloat("pout_max", 0),
			PhaseCount: int(req.GetFloat("phases", 0)),
		}
		iOut := req.GetFloat("iout", 0)
		eta, err := efficiency.Evaluate(model, iOut*r.Vout, iOut, r)
		out := map[string]interface{}{"eta": eta}
		if err != nil {
			out["warning"] = err.Error()
		}
		return jsonResult(out)
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
