package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Mermaid renders the workflow as a Mermaid flowchart. Nodes listed in
// visited, typically a path from InvokePath, are styled with the visited
// class.
func (r *Runnable[S]) Mermaid(visited ...string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	endID := sanitizeMermaidID(END)
	sb.WriteString(fmt.Sprintf("    %s((\"END\"))\n", endID))

	for _, name := range r.order {
		id := sanitizeMermaidID(name)
		if name == r.entry {
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, name))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, name))
		}

		rl := r.rules[name]
		if !rl.conditional() {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, sanitizeMermaidID(rl.to)))
			continue
		}

		keys := make([]string, 0, len(rl.routes))
		for k := range rl.routes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label := strings.ReplaceAll(k, "\"", "'")
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", id, label, sanitizeMermaidID(rl.routes[k])))
		}
	}

	if len(visited) > 0 {
		sb.WriteString("\n    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		seen := make(map[string]bool)
		for _, name := range visited {
			id := sanitizeMermaidID(name)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
