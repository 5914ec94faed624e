/*
hmi.go Terminal viewer for computed snapshots: node table, stage summary,
power tree and warnings, one page each.
*/

package hmi

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell"
	"github.com/ohowland/pdn_core/internal/pkg/graph"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"github.com/ohowland/pdn_core/internal/pkg/service"
	"github.com/ohowland/pdn_core/internal/pkg/summary"
	"github.com/rivo/tview"
	"golang.org/x/exp/slices"
)

// Page builds one screen of the viewer.
type Page func(*tview.Pages) (title string, content tview.Primitive)

// Page titles in tab order.
var titles = []string{"Nodes", "Summary", "Tree", "Warnings"}

var nodeHeader = []string{"Node", "Kind", "V_up", "I_in", "P_in", "P_out", "Loss", "Eta", "Warnings"}

var summaryHeader = []string{"Location", "x", "Stage", "Kind", "P_in", "P_out", "Loss", "Eta", "Edge loss"}

func watts(v float64) string { return fmt.Sprintf("%.3f", v) }

func percent(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

func header(table *tview.Table, cols []string) {
	for column, text := range cols {
		table.SetCell(0, column, tview.NewTableCell(text).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignCenter).
			SetSelectable(false))
	}
}

func row(table *tview.Table, r int, cells []string, warn bool) {
	for column, text := range cells {
		color := tcell.ColorWhite
		align := tview.AlignRight
		switch {
		case column == 0:
			color = tcell.ColorDarkCyan
			align = tview.AlignLeft
		case warn:
			color = tcell.ColorRed
		}
		table.SetCell(r, column, tview.NewTableCell(text).
			SetTextColor(color).
			SetAlign(align))
	}
}

// NodeTable lists every node of res in computation order.
func NodeTable(res *powerflow.Result) *tview.Table {
	table := tview.NewTable().SetFixed(1, 1)
	header(table, nodeHeader)
	if res == nil {
		return table
	}
	ids := res.Order
	if len(ids) == 0 {
		for id := range res.Nodes {
			ids = append(ids, id)
		}
		slices.Sort(ids)
	}
	for i, id := range ids {
		nr := res.Nodes[id]
		row(table, i+1, []string{
			nr.Name,
			string(nr.Kind),
			fmt.Sprintf("%.3f", nr.VUpstream),
			fmt.Sprintf("%.3f", nr.IIn),
			watts(nr.PIn),
			watts(nr.POut),
			watts(nr.Loss),
			percent(nr.Efficiency),
			fmt.Sprint(len(nr.Warnings)),
		}, len(nr.Warnings) > 0)
	}
	table.SetBorder(true).SetTitle(" Nodes ")
	table.SetSelectable(true, false).SetSeparator(' ')
	return table
}

// SummaryTable lists the conversion and distribution stages.
func SummaryTable(entries []summary.Entry) *tview.Table {
	table := tview.NewTable().SetFixed(1, 1)
	header(table, summaryHeader)
	r := 1
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.NodeID
		}
		row(table, r, []string{
			e.Location,
			fmt.Sprint(e.Multiplier),
			name,
			string(e.Kind),
			watts(e.PIn),
			watts(e.POut),
			watts(e.Loss),
			percent(e.Efficiency),
			watts(e.DownstreamEdgeLoss),
		}, len(e.Warnings) > 0)
		r++
		for _, o := range e.Outputs {
			row(table, r, []string{
				"",
				"",
				"  " + o.Label,
				fmt.Sprintf("%.3f V", o.Vout),
				watts(o.PIn),
				watts(o.POut),
				watts(o.Loss),
				percent(o.Efficiency),
				watts(o.DownstreamEdgeLoss),
			}, false)
			r++
		}
	}
	table.SetBorder(true).SetTitle(" Summary ")
	table.SetSelectable(true, false).SetSeparator(' ')
	return table
}

// Warnings returns every warning of res, nested subsystems included, each
// prefixed with the path of the node that raised it.
func Warnings(res *powerflow.Result) []string {
	out := []string{}
	collect(&out, "", res)
	return out
}

func collect(out *[]string, prefix string, res *powerflow.Result) {
	if res == nil {
		return
	}
	for _, w := range res.GlobalWarnings {
		*out = append(*out, prefix+w)
	}
	ids := make([]string, 0, len(res.Nodes))
	for id := range res.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		nr := res.Nodes[id]
		for _, w := range nr.Warnings {
			*out = append(*out, prefix+nr.Name+": "+w)
		}
		collect(out, prefix+nr.Name+"/", nr.Inner)
	}
}

// WarningView renders Warnings(res).
func WarningView(res *powerflow.Result) *tview.TextView {
	view := tview.NewTextView().SetDynamicColors(false)
	warnings := Warnings(res)
	if len(warnings) == 0 {
		view.SetTextColor(tcell.ColorGreen).SetText("no warnings")
	} else {
		view.SetTextColor(tcell.ColorRed).SetText(strings.Join(warnings, "\n"))
	}
	view.SetBorder(true).SetTitle(fmt.Sprintf(" Warnings (%d) ", len(warnings)))
	return view
}

// Tree arranges the nodes of p under their sources. Subsystems expand into
// their embedded projects.
func Tree(p *project.Project, res *powerflow.Result) *tview.TreeView {
	name := "project"
	if p != nil && p.Name != "" {
		name = p.Name
	} else if p != nil && p.ID != "" {
		name = p.ID
	}
	root := tview.NewTreeNode(name).SetColor(tcell.ColorBlue)
	if p != nil {
		branch(root, p, res, map[*project.Project]bool{})
	}
	return tview.NewTreeView().SetRoot(root).SetCurrentNode(root)
}

func branch(parent *tview.TreeNode, p *project.Project, res *powerflow.Result, open map[*project.Project]bool) {
	if open[p] {
		parent.AddChild(tview.NewTreeNode("(recursive)").SetColor(tcell.ColorRed))
		return
	}
	open[p] = true
	defer delete(open, p)

	g, _ := graph.New(p.Nodes, p.Edges)
	seen := map[string]bool{}
	for _, id := range g.NodeIDs() {
		if len(g.Incoming(id)) == 0 {
			grow(parent, g, id, res, seen, open)
		}
	}
}

func grow(parent *tview.TreeNode, g *graph.Graph, id string, res *powerflow.Result, seen map[string]bool, open map[*project.Project]bool) {
	n, _ := g.Node(id)
	if _, ok := n.(*project.Note); ok {
		return
	}
	label := n.Label()
	color := tcell.ColorWhite
	var inner *powerflow.Result
	if res != nil {
		if nr, ok := res.Nodes[id]; ok {
			label = fmt.Sprintf("%s [%s] %.3f W", nr.Name, nr.Kind, nr.PIn)
			if len(nr.Warnings) > 0 {
				color = tcell.ColorRed
			}
			inner = nr.Inner
		}
	}
	node := tview.NewTreeNode(label).SetColor(color).SetReference(id)
	parent.AddChild(node)
	if seen[id] {
		return
	}
	seen[id] = true

	if sub, ok := n.(*project.Subsystem); ok && sub.Project != nil {
		branch(node, sub.Project, inner, open)
	}
	for _, e := range g.Outgoing(id) {
		grow(node, g, e.To, res, seen, open)
	}
}

// Viewer is a terminal application showing the latest snapshot of a project.
type Viewer struct {
	app     *tview.Application
	pages   *tview.Pages
	project *project.Project
	current int
}

// NewViewer builds the pages for snap.
func NewViewer(p *project.Project, snap service.Snapshot) *Viewer {
	v := &Viewer{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		project: p,
	}
	v.show(snap)
	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyTab:
			v.current = (v.current + 1) % len(titles)
			v.pages.SwitchToPage(titles[v.current])
			return nil
		case event.Rune() == 'q':
			v.app.Stop()
			return nil
		}
		return event
	})
	return v
}

func (v *Viewer) show(snap service.Snapshot) {
	pages := []Page{
		func(*tview.Pages) (string, tview.Primitive) { return "Nodes", NodeTable(snap.Result) },
		func(*tview.Pages) (string, tview.Primitive) { return "Summary", SummaryTable(snap.Summary) },
		func(*tview.Pages) (string, tview.Primitive) { return "Tree", Tree(v.project, snap.Result) },
		func(*tview.Pages) (string, tview.Primitive) { return "Warnings", WarningView(snap.Result) },
	}
	for i, page := range pages {
		title, content := page(v.pages)
		v.pages.AddPage(title, content, true, i == v.current)
	}
}

// Pages is an accessor for the page container.
func (v *Viewer) Pages() *tview.Pages {
	return v.pages
}

// Follow redraws the viewer whenever a snapshot of the viewed project arrives on inbox.
func (v *Viewer) Follow(inbox <-chan msg.Msg) {
	for m := range inbox {
		snap, ok := m.Payload().(service.Snapshot)
		if !ok || v.project == nil || snap.ProjectID != v.project.ID {
			continue
		}
		v.app.QueueUpdateDraw(func() {
			v.show(snap)
		})
	}
}

// Run blocks until the user quits with q.
func (v *Viewer) Run() error {
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.pages, 0, 1, true).
		AddItem(tview.NewTextView().SetText("tab: next page   q: quit"), 1, 0, false)
	return v.app.SetRoot(layout, true).Run()
}
