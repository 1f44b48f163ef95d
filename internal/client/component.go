package client

import (
	"errors"
	"fmt"

	"github.com/roach88/stepnorm/internal/jsontree"
	"github.com/roach88/stepnorm/internal/stepimpl"
)

// Component is one step component. Leaves carry a Task; parents carry Steps.
type Component struct {
	ID    string
	Name  string
	Task  *stepimpl.StepImplementation
	Steps []Component
}

// IsLeaf reports whether the component has no child steps.
func (c Component) IsLeaf() bool {
	return len(c.Steps) == 0
}

// Leaves returns every leaf component with a task, depth first in document order.
func Leaves(components []Component) []Component {
	var out []Component
	var walk func([]Component)
	walk = func(cs []Component) {
		for _, comp := range cs {
			if comp.IsLeaf() {
				if comp.Task != nil {
					out = append(out, comp)
				}
				continue
			}
			walk(comp.Steps)
		}
	}
	walk(components)
	return out
}

var errNotArray = errors.New("expected array of components")

func (c *Client) decodeComponents(body []byte) ([]Component, error) {
	root, err := jsontree.Parse(body)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("%w, got %s", errNotArray, root.Kind())
	}
	return c.componentList(root, "")
}

func (c *Client) componentList(list jsontree.Node, path string) ([]Component, error) {
	out := make([]Component, 0, list.Len())
	var err error
	list.ForEach(func(i int, node jsontree.Node) bool {
		var comp Component
		comp, err = c.component(node, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return false
		}
		out = append(out, comp)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) component(node jsontree.Node, path string) (Component, error) {
	if !node.IsObject() {
		return Component{}, fmt.Errorf("%s: expected object, got %s", path, node.Kind())
	}
	comp := Component{
		ID:   node.Get("id").Text(),
		Name: node.Get("name").Text(),
	}

	if node.Has("task") {
		task, err := c.task(node.Get("task"))
		if err != nil {
			return Component{}, fmt.Errorf("%s.task (%s): %w", path, comp.Name, err)
		}
		comp.Task = &task
	}

	if steps := node.Get("steps"); steps.IsArray() {
		children, err := c.componentList(steps, path+".steps")
		if err != nil {
			return Component{}, err
		}
		comp.Steps = children
	}
	return comp, nil
}

// task normalizes an inline task object or a JSON encoded task string.
func (c *Client) task(node jsontree.Node) (stepimpl.StepImplementation, error) {
	if node.Kind() == jsontree.KindString {
		return c.normalizer.Parse([]byte(node.Text()))
	}
	return c.normalizer.Normalize(node)
}
