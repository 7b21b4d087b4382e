package types

import (
	"encoding/json"
	"fmt"
)

// PrettyJSON renders the node as indented JSON for logs and CLI output.
func (n *Node) PrettyJSON() (string, error) {
	b, err := json.MarshalIndent(n, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal node %s: %w", n.ID, err)
	}
	return string(b), nil
}

func (n *Node) PrettyPrint() {
	s, err := n.PrettyJSON()
	if err != nil {
		fmt.Println("Error marshalling Node to JSON:", err)
		return
	}
	fmt.Println(s)
}
