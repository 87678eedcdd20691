// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EncodeXML writes v as an XML document with root element "rsp".
// Maps and structs become nested elements, named by map key or codec
// tag; lists become an "array" element holding one "item" per entry;
// booleans are written as 1 and 0.
func EncodeXML(w io.Writer, v interface{}) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := encodeElement(enc, "rsp", reflect.ValueOf(v)); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeElement(enc *xml.Encoder, name string, v reflect.Value) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeValue(enc, v); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

var timeType = reflect.TypeOf(time.Time{})

func encodeValue(enc *xml.Encoder, v reflect.Value) error {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr) {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		values := make(map[string]reflect.Value, v.Len())
		for _, k := range v.MapKeys() {
			name := fmt.Sprint(k.Interface())
			keys = append(keys, name)
			values[name] = v.MapIndex(k)
		}
		sort.Strings(keys)
		for _, name := range keys {
			if err := encodeElement(enc, name, values[name]); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		if v.Type() == timeType {
			return enc.EncodeToken(xml.CharData(FormatTime(v.Interface().(time.Time))))
		}
		return encodeStruct(enc, v)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return enc.EncodeToken(xml.CharData(fmt.Sprintf("%s", v.Interface())))
		}
		return encodeElement(enc, "array", reflect.ValueOf(itemList{v}))
	case reflect.Bool:
		s := "0"
		if v.Bool() {
			s = "1"
		}
		return enc.EncodeToken(xml.CharData(s))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return enc.EncodeToken(xml.CharData(strconv.FormatInt(v.Int(), 10)))
	case reflect.String:
		return enc.EncodeToken(xml.CharData(v.String()))
	}
	return enc.EncodeToken(xml.CharData(fmt.Sprint(v.Interface())))
}

// itemList marks a list whose entries are written as "item" elements.
type itemList struct {
	v reflect.Value
}

func encodeStruct(enc *xml.Encoder, v reflect.Value) error {
	if list, ok := v.Interface().(itemList); ok {
		for i := 0; i < list.v.Len(); i++ {
			if err := encodeElement(enc, "item", list.v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if err := encodeStruct(enc, v.Field(i)); err != nil {
				return err
			}
			continue
		}
		name, omitEmpty := f.Name, false
		if tag := f.Tag.Get("codec"); tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				omitEmpty = omitEmpty || opt == "omitempty"
			}
		}
		fv := v.Field(i)
		if omitEmpty && isEmptyValue(fv) {
			continue
		}
		if err := encodeElement(enc, name, fv); err != nil {
			return err
		}
	}
	return nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
