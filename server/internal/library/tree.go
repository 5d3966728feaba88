package library

import (
	"sort"
	"strings"
)

// Node is one entry of the nested library view. Directories have Children;
// files have Path set to their identifier.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsDir reports whether n is a directory node.
func (n *Node) IsDir() bool { return n.Path == "" }

// Tree returns the indexed files as a nested structure rooted at the library
// directory. Directories without listable files do not appear. Directories
// sort before files, each group by name.
func (l *Library) Tree() *Node {
	root := &Node{Name: "."}
	for _, f := range l.Files() {
		dir := root
		parts := strings.Split(f, "/")
		for _, part := range parts[:len(parts)-1] {
			dir = dir.child(part)
		}
		dir.Children = append(dir.Children, &Node{Name: parts[len(parts)-1], Path: f})
	}
	root.sort()
	return root
}

func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.IsDir() && c.Name == name {
			return c
		}
	}
	c := &Node{Name: name}
	n.Children = append(n.Children, c)
	return c
}

func (n *Node) sort() {
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return a.Name < b.Name
	})
	for _, c := range n.Children {
		if c.IsDir() {
			c.sort()
		}
	}
}
