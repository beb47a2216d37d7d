package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// node is the decoded shape of model output: text, number, bool, list or
// object. A nil node means the field was absent or null.
type node interface {
	// String is the plain string form used when a value has no better reading.
	String() string
}

type (
	textNode   string
	numberNode json.Number
	boolNode   bool
	listNode   []node
	objectNode map[string]node
)

func (n textNode) String() string   { return string(n) }
func (n numberNode) String() string { return string(n) }
func (n boolNode) String() string   { return strconv.FormatBool(bool(n)) }

func (n listNode) String() string {
	parts := make([]string, 0, len(n))
	for _, item := range n {
		if item != nil {
			parts = append(parts, item.String())
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (n objectNode) String() string {
	b, err := json.Marshal(toValue(n))
	if err != nil {
		return ""
	}
	return string(b)
}

// field returns the named member, or nil.
func (n objectNode) field(name string) node {
	return n[name]
}

// toNode converts a decoded JSON value (or a plain Go scalar) into a node.
func toNode(v any) node {
	switch t := v.(type) {
	case nil:
		return nil
	case textNode, numberNode, boolNode, listNode, objectNode:
		return t.(node)
	case string:
		return textNode(t)
	case json.Number:
		return numberNode(t)
	case float64:
		return numberNode(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return numberNode(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return numberNode(strconv.Itoa(t))
	case int64:
		return numberNode(strconv.FormatInt(t, 10))
	case bool:
		return boolNode(t)
	case []byte:
		return textNode(string(t))
	case []any:
		out := make(listNode, 0, len(t))
		for _, item := range t {
			out = append(out, toNode(item))
		}
		return out
	case []string:
		out := make(listNode, 0, len(t))
		for _, item := range t {
			out = append(out, textNode(item))
		}
		return out
	case map[string]any:
		out := make(objectNode, len(t))
		for k, item := range t {
			out[k] = toNode(item)
		}
		return out
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return textNode(string(b))
	}
}

// toValue is the inverse of toNode, used only for re-encoding.
func toValue(n node) any {
	switch t := n.(type) {
	case nil:
		return nil
	case textNode:
		return string(t)
	case numberNode:
		return json.Number(t)
	case boolNode:
		return bool(t)
	case listNode:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, toValue(item))
		}
		return out
	case objectNode:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = toValue(item)
		}
		return out
	default:
		return n.String()
	}
}
