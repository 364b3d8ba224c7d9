// Package subtract computes the difference between two counter snapshots.
package subtract

import (
	"reflect"
)

// SubFields assigns curr-prev to *diffPtr, field by field.
//
// Integer and float fields are subtracted; nested structs are handled recursively.
// Any other field, or a field tagged `subtract:"-"`, is copied from curr.
func SubFields[T any](curr, prev T, diffPtr *T) {
	subStruct(reflect.ValueOf(curr), reflect.ValueOf(prev), reflect.ValueOf(diffPtr).Elem())
}

func subStruct(curr, prev, diff reflect.Value) {
	typ := curr.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		c, d := curr.Field(i), diff.Field(i)
		if f.Tag.Get("subtract") == "-" {
			d.Set(c)
			continue
		}
		p := prev.Field(i)
		switch {
		case c.CanUint():
			d.SetUint(c.Uint() - p.Uint())
		case c.CanInt():
			d.SetInt(c.Int() - p.Int())
		case c.CanFloat():
			d.SetFloat(c.Float() - p.Float())
		case c.Kind() == reflect.Struct:
			subStruct(c, p, d)
		default:
			d.Set(c)
		}
	}
}
