// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/gorilla/mux"
)

// node is one resource in the API tree.  A node with a key has a
// list URL and an item URL below its parent's item URL; a singleton
// has only an item URL.  A list-only node has no item URL, and its
// entries are serialized by the node that owns their kind.
type node struct {
	name       string
	plural     string
	uriName    string
	singleton  bool
	listOnly   bool
	key        string
	keyPattern string
	kind       reviews.Kind
	fields     []field

	// hidden nodes are routed but not linked from their parent.
	hidden bool

	listMethods []string
	itemMethods []string

	// itemTypes are media types, beyond the JSON and XML
	// representations, that render serves for items.
	itemTypes []string

	parent   *node
	children []*node

	// id names the item route; the list route is id + ":list".
	id       string
	itemPath string
	listPath string

	// lookup finds the object named by key inside the call's
	// resolved ancestors.  Singletons get an empty key.
	lookup func(c *call, key string) (reviews.Object, error)

	// get, if set, replaces the plain serialization of a fetched
	// item.
	get func(c *call, obj reviews.Object) (interface{}, error)

	list   func(c *call, pg page) ([]reviews.Object, int, error)
	count  func(c *call) (int, error)
	create func(c *call, p *restdata.Payload) (interface{}, error)
	update func(c *call, obj reviews.Object, p *restdata.Payload) (interface{}, error)
	remove func(c *call, obj reviews.Object) (interface{}, error)
	render func(c *call, obj reviews.Object, mediaType string) (interface{}, error)

	canRead   func(c *call, obj reviews.Object) bool
	canModify func(c *call, obj reviews.Object) bool
	canDelete func(c *call, obj reviews.Object) bool

	// href returns the route variables, as name/value pairs, of
	// the item URL of obj.
	href  func(c *call, obj reviews.Object) ([]string, error)
	title func(obj reviews.Object) string
}

// add attaches children to n and returns n.
func (n *node) add(children ...*node) *node {
	for _, child := range children {
		child.parent = n
		n.children = append(n.children, child)
	}
	return n
}

// linkName is the key of n in its parent's links.
func (n *node) linkName() string {
	if n.singleton {
		return n.name
	}
	return n.plural
}

// chain returns the ancestors of n from the top of the tree down,
// including n but not the root.
func (n *node) chain() []*node {
	var result []*node
	for a := n; a != nil && a.parent != nil; a = a.parent {
		result = append([]*node{a}, result...)
	}
	return result
}

// allows reports whether n serves method on its item or list URL.
func (n *node) allows(item bool, method string) bool {
	methods := n.listMethods
	if item {
		methods = n.itemMethods
	}
	if method == http.MethodHead {
		method = http.MethodGet
	}
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// listRoute names the route of n's list URL.
func (n *node) listRoute() string {
	return n.id + ":list"
}

// register adds routes for n and its descendants to r.  parentPath
// is the item path of n's parent and ends with "/".
func (api *restAPI) register(r *mux.Router, n *node, parentPath string) {
	switch {
	case n.parent == nil:
		n.id = n.name
		n.itemPath = parentPath
	case n.parent.parent == nil:
		n.id = n.name
	default:
		n.id = n.parent.id + "." + n.name
	}
	if n.parent != nil {
		if n.singleton {
			n.itemPath = parentPath + n.uriName + "/"
		} else {
			n.listPath = parentPath + n.uriName + "/"
			pattern := n.keyPattern
			if pattern == "" {
				pattern = "[^/]+"
			}
			n.itemPath = n.listPath + "{" + n.key + ":" + pattern + "}/"
		}
	}

	if n.listPath != "" {
		r.Path(n.listPath).Name(n.listRoute()).Handler(&resourceHandler{api: api, node: n})
	}
	if !n.listOnly {
		r.Path(n.itemPath).Name(n.id).Handler(&resourceHandler{api: api, node: n, item: true})
		if _, taken := api.byKind[n.kind]; !taken && n.kind != reviews.KindUnknown {
			api.byKind[n.kind] = n
		}
	}
	for _, child := range n.children {
		api.register(r, child, n.itemPath)
	}
}

// templates returns the URI templates of every routed node, keyed by
// item name and by plural name.  Shallower nodes win name clashes.
func (api *restAPI) templates(c *call) (map[string]string, error) {
	result := make(map[string]string)
	queue := append([]*node(nil), api.root.children...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		queue = append(queue, n.children...)
		if n.hidden {
			continue
		}
		var err error
		if n.listPath != "" {
			if _, taken := result[n.plural]; !taken {
				var t string
				t, err = c.template(n.listRoute())
				result[n.plural] = t
			}
		}
		if !n.listOnly && err == nil {
			if _, taken := result[n.name]; !taken {
				var t string
				t, err = c.template(n.id)
				result[n.name] = t
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// nodeFor returns the node that serializes obj.
func (api *restAPI) nodeFor(obj reviews.Object) *node {
	return api.byKind[obj.Kind()]
}
