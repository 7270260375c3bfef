package thimble

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type TreeInfo struct {
	ID       string
	Name     string
	Scope    string
	Disposed bool
	Entries  []EntryInfo
	Children []TreeInfo
}

type EntryInfo struct {
	Key    string
	Kind   string
	Scope  string
	Cached bool
}

// Tree snapshots c and its live descendants.
func (c *Container) Tree() TreeInfo {
	keys := c.Keys()

	c.mu.Lock()
	info := TreeInfo{
		ID:       c.id,
		Name:     c.cfg.name,
		Disposed: c.disposed,
		Entries:  make([]EntryInfo, 0, len(keys)),
	}
	if c.scope != nil {
		info.Scope = c.scope.String()
	}

	for _, key := range keys {
		entry := EntryInfo{Key: KeyName(key), Kind: "cached"}
		if kind, ok := c.kinds[key]; ok {
			entry.Kind = kind.String()
		}
		if p, ok := c.resolvers[key]; ok && p.scope != nil {
			entry.Scope = p.scope.String()
		}
		if p, ok := c.generators[key]; ok && p.scope != nil {
			entry.Scope = p.scope.String()
		}
		_, entry.Cached = c.values[key]
		info.Entries = append(info.Entries, entry)
	}

	children := make([]*Container, len(c.children))
	copy(children, c.children)
	c.mu.Unlock()

	for _, child := range children {
		info.Children = append(info.Children, child.Tree())
	}
	return info
}

func (c *Container) PrintTree() {
	c.FprintTree(os.Stdout)
}

func (c *Container) FprintTree(w io.Writer) {
	fprintTree(w, c.Tree(), 0)
}

func (c *Container) SprintTree() string {
	var sb strings.Builder
	c.FprintTree(&sb)
	return sb.String()
}

func fprintTree(w io.Writer, info TreeInfo, depth int) {
	indent := strings.Repeat("  ", depth)

	title := info.Name
	if title == "" {
		title = info.ID
	}
	if info.Scope != "" {
		title += " @" + info.Scope
	}
	if info.Disposed {
		title += " (disposed)"
	}
	_, _ = fmt.Fprintf(w, "%s%s\n", indent, title)

	for _, e := range info.Entries {
		status := "○"
		if e.Cached {
			status = "●"
		}
		line := fmt.Sprintf("%s  %s %s [%s]", indent, status, e.Key, e.Kind)
		if e.Scope != "" {
			line += " @" + e.Scope
		}
		_, _ = fmt.Fprintln(w, line)
	}

	for _, child := range info.Children {
		fprintTree(w, child, depth+1)
	}
}
