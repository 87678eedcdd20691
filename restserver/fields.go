// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
)

// field is one attribute in the representation of a resource.
//
// A field's value is read from the struct field tagged with its name,
// unless value is set.  A value that is a reviews.Object is written
// as a link under "links", and a []reviews.Object as a list of links,
// unless the caller asks to expand the field.  An inline value is
// always serialized in full.
type field struct {
	name    string
	mutable bool
	value   func(c *call, obj reviews.Object) (interface{}, error)
}

// inline marks an object to serialize in full rather than as a link.
type inline struct {
	obj reviews.Object
}

// attrs declares plain, immutable fields.
func attrs(names ...string) []field {
	result := make([]field, len(names))
	for i, name := range names {
		result[i] = field{name: name}
	}
	return result
}

// mutable declares plain fields that requests may change.
func mutable(names ...string) []field {
	result := attrs(names...)
	for i := range result {
		result[i].mutable = true
	}
	return result
}

// fieldList concatenates field declarations.
func fieldList(groups ...[]field) []field {
	var result []field
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}

// fieldIndex caches the index path of each tagged struct field.
var fieldIndex sync.Map // reflect.Type -> map[string][]int

func taggedFields(t reflect.Type) map[string][]int {
	if cached, ok := fieldIndex.Load(t); ok {
		return cached.(map[string][]int)
	}
	result := make(map[string][]int)
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			index := append(append([]int(nil), prefix...), i)
			ft := f.Type
			if f.Anonymous {
				if ft.Kind() == reflect.Ptr {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					walk(ft, index)
				}
				continue
			}
			if name := f.Tag.Get("field"); name != "" && name != "-" {
				if _, seen := result[name]; !seen {
					result[name] = index
				}
			}
		}
	}
	walk(t, nil)
	fieldIndex.Store(t, result)
	return result
}

// attr reads the struct field tagged name from obj.
func attr(obj reviews.Object, name string) (interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	index, ok := taggedFields(v.Type())[name]
	if !ok {
		return nil, fmt.Errorf("%v has no field %q", v.Type(), name)
	}
	fv, err := v.FieldByIndexErr(index)
	if err != nil {
		return nil, err
	}
	if fv.Kind() == reflect.Slice && fv.IsNil() {
		return reflect.MakeSlice(fv.Type(), 0, 0).Interface(), nil
	}
	return fv.Interface(), nil
}

func isNilObject(obj reviews.Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// serialize produces the representation of obj as n describes it.
func (c *call) serialize(n *node, obj reviews.Object) (map[string]interface{}, error) {
	data := make(map[string]interface{}, len(n.fields)+1)
	links := restdata.Links{}
	expand := c.expand()
	for _, f := range n.fields {
		var value interface{}
		var err error
		if f.value != nil {
			value, err = f.value(c, obj)
		} else {
			value, err = attr(obj, f.name)
		}
		if err != nil {
			return nil, err
		}
		switch v := value.(type) {
		case reviews.Object:
			switch {
			case isNilObject(v):
				data[f.name] = nil
			case expand[f.name]:
				data[f.name], err = c.serialize(c.api.nodeFor(v), v)
			default:
				links[f.name], err = c.link(v)
			}
		case []reviews.Object:
			list := make([]interface{}, len(v))
			for i, item := range v {
				if expand[f.name] {
					list[i], err = c.serialize(c.api.nodeFor(item), item)
				} else {
					list[i], err = c.link(item)
				}
				if err != nil {
					break
				}
			}
			data[f.name] = list
		case inline:
			data[f.name], err = c.serialize(c.api.nodeFor(v.obj), v.obj)
		case time.Time:
			data[f.name] = restdata.FormatTime(v)
		default:
			data[f.name] = value
		}
		if err != nil {
			return nil, err
		}
	}
	if err := c.itemLinks(n, obj, links); err != nil {
		return nil, err
	}
	data["links"] = links
	return data, nil
}

// href returns the absolute URL of obj as an item of n.
func (c *call) href(n *node, obj reviews.Object) (string, error) {
	vars, err := n.href(c, obj)
	if err != nil {
		return "", err
	}
	return c.url(n.id, vars...)
}

// link returns a link to obj's canonical URL.
func (c *call) link(obj reviews.Object) (restdata.Link, error) {
	n := c.api.nodeFor(obj)
	if n == nil {
		return restdata.Link{}, fmt.Errorf("no resource for %v", obj.Kind())
	}
	href, err := c.href(n, obj)
	if err != nil {
		return restdata.Link{}, err
	}
	link := restdata.Link{Method: "GET", Href: href}
	if n.title != nil {
		link.Title = n.title(obj)
	}
	return link, nil
}

// itemLinks adds the self, update, delete and child links of obj.
func (c *call) itemLinks(n *node, obj reviews.Object, links restdata.Links) error {
	vars, err := n.href(c, obj)
	if err != nil {
		return err
	}
	self, err := c.url(n.id, vars...)
	if err != nil {
		return err
	}
	links["self"] = restdata.Link{Method: "GET", Href: self}
	if n.allows(true, "PUT") && (n.canModify == nil || n.canModify(c, obj)) {
		links["update"] = restdata.Link{Method: "PUT", Href: self}
	}
	if n.allows(true, "DELETE") && (n.canDelete == nil || n.canDelete(c, obj)) {
		links["delete"] = restdata.Link{Method: "DELETE", Href: self}
	}
	return c.childLinks(n, vars, links)
}

// childLinks adds links to the children of an item of n.
func (c *call) childLinks(n *node, vars []string, links restdata.Links) error {
	for _, child := range n.children {
		if child.hidden {
			continue
		}
		route := child.id
		if !child.singleton {
			route = child.listRoute()
		}
		href, err := c.url(route, vars...)
		if err != nil {
			return err
		}
		links[child.linkName()] = restdata.Link{Method: "GET", Href: href}
	}
	return nil
}

// userRef returns the user named by a reference field.  A user the
// store no longer knows is still linked by name.
func (c *call) userRef(username string) (reviews.Object, error) {
	u, err := c.api.Service.Store.User(username)
	if reviews.IsNotFound(err) {
		return &reviews.User{Username: username}, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// userRefs converts a list of usernames.
func (c *call) userRefs(usernames []string) ([]reviews.Object, error) {
	result := make([]reviews.Object, len(usernames))
	for i, name := range usernames {
		u, err := c.userRef(name)
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

// groupRefs converts a list of group names.
func (c *call) groupRefs(names []string) ([]reviews.Object, error) {
	result := make([]reviews.Object, len(names))
	for i, name := range names {
		g, err := c.api.Service.Store.Group(name)
		if reviews.IsNotFound(err) {
			g, err = &reviews.Group{Name: name}, nil
		}
		if err != nil {
			return nil, err
		}
		result[i] = g
	}
	return result, nil
}
