// Package pageresult normalizes raw per-page parsing-service output into
// record.PageResult so nothing downstream has to probe optional attributes.
package pageresult

import (
	"github.com/tidwall/gjson"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// Keys probed, in order, for the page text and the field list.
var (
	textKeys  = []string{"markdown", "md", "text"}
	fieldKeys = []string{"fields", "form_fields"}
	nameKeys  = []string{"name", "key"}
	valueKeys = []string{"value"}
)

// New builds a PageResult from already-typed values.
func New(number int, text string, fields ...record.FieldRecord) record.PageResult {
	out := make([]record.FieldRecord, len(fields))
	copy(out, fields)
	return record.PageResult{
		Number: number,
		Text:   text,
		Fields: out,
	}
}

// FromJSON builds a PageResult from one page object of a service response.
// It never fails: invalid JSON or missing attributes produce an empty page.
func FromJSON(number int, raw []byte) record.PageResult {
	if !gjson.ValidBytes(raw) {
		return New(number, "")
	}
	return FromResult(number, gjson.ParseBytes(raw))
}

// FromResult is FromJSON for an already-parsed gjson value.
func FromResult(number int, page gjson.Result) record.PageResult {
	if !page.IsObject() {
		return New(number, "")
	}

	text := ""
	if v, ok := first(page, textKeys); ok {
		text = v.String()
	}

	fields := []record.FieldRecord{}
	if list, ok := first(page, fieldKeys); ok && list.IsArray() {
		for _, f := range list.Array() {
			if !f.IsObject() {
				continue
			}
			fields = append(fields, record.FieldRecord{
				Name:  optional(f, nameKeys),
				Value: optional(f, valueKeys),
			})
		}
	}

	return record.PageResult{
		Number: number,
		Text:   text,
		Fields: fields,
	}
}

// first returns the first key present with a non-null value.
func first(obj gjson.Result, keys []string) (gjson.Result, bool) {
	for _, k := range keys {
		v := obj.Get(gjson.Escape(k))
		if v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func optional(obj gjson.Result, keys []string) *string {
	v, ok := first(obj, keys)
	if !ok {
		return nil
	}
	s := v.String()
	return &s
}
