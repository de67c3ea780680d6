package matcher

import "strings"

// ContentNode is one element of the on-screen content tree handed over by the OS.
type ContentNode struct {
	Text        string         `json:"text,omitempty"`
	Description string         `json:"description,omitempty"`
	Children    []*ContentNode `json:"children,omitempty"`
}

// findKeyword walks the tree depth first and returns the first keyword found in a node's
// text or description. At most maxNodes nodes are visited.
func findKeyword(root *ContentNode, keywords []string, maxNodes int) (string, bool) {
	stack := []*ContentNode{root}
	visited := 0

	for len(stack) > 0 && visited < maxNodes {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}
		visited++

		text := strings.ToLower(node.Text)
		desc := strings.ToLower(node.Description)
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) || strings.Contains(desc, keyword) {
				return keyword, true
			}
		}

		// Push in reverse so the first child is visited first.
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}

	return "", false
}
