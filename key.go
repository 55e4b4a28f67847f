package asyncresource

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Key identifies one cache entry within a function's table: a
// deterministic structural encoding of an argument value. Function
// identity is not part of the key; each function owns its own table,
// so equal argument lists for different functions never collide.
type Key string

// KeyFor derives the key for args. It is pure: structurally equal
// values always produce equal keys, and any difference in any field,
// exported or not, produces a different key. The encoding walks the
// value with reflection: slices are order-sensitive, map entries are
// sorted so insertion order never leaks in, pointers and interfaces
// are dereferenced. Channels and funcs are not plain data and compare
// by reference identity.
func KeyFor(args any) Key {
	var b strings.Builder
	writeKeyPart(&b, reflect.ValueOf(args))
	return Key(b.String())
}

func writeKeyPart(b *strings.Builder, v reflect.Value) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		writeKeyPart(b, v.Elem())
	case reflect.Struct:
		t := v.Type()
		b.WriteString(t.String())
		b.WriteByte('{')
		for i := 0; i < t.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t.Field(i).Name)
			b.WriteByte(':')
			writeKeyPart(b, v.Field(i))
		}
		b.WriteByte('}')
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		b.WriteString(v.Type().String())
		pairs := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			var pair strings.Builder
			writeKeyPart(&pair, iter.Key())
			pair.WriteByte(':')
			writeKeyPart(&pair, iter.Value())
			pairs = append(pairs, pair.String())
		}
		sort.Strings(pairs)
		b.WriteByte('{')
		b.WriteString(strings.Join(pairs, ","))
		b.WriteByte('}')
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			b.WriteString("nil")
			return
		}
		b.WriteString(v.Type().String())
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKeyPart(b, v.Index(i))
		}
		b.WriteByte(']')
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeScalar(b, v, strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		writeScalar(b, v, strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		writeScalar(b, v, strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()))
	case reflect.Complex64, reflect.Complex128:
		writeScalar(b, v, strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits()))
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		writeScalar(b, v, "0x"+strconv.FormatUint(uint64(v.Pointer()), 16))
	default:
		b.WriteString(v.Type().String())
	}
}

// writeScalar tags the value with its type so values of different
// types reached through an interface never collide.
func writeScalar(b *strings.Builder, v reflect.Value, body string) {
	b.WriteString(v.Type().String())
	b.WriteByte('(')
	b.WriteString(body)
	b.WriteByte(')')
}

// funcID namespaces registry tables by function identity. Closures
// built from the same function literal share a code pointer and
// therefore share a table.
func funcID(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	return fmt.Sprintf("%s@0x%x", funcNameForPC(pc), pc)
}

// funcName is the short display name used in logs and events.
func funcName(fn any) string {
	name := funcNameForPC(reflect.ValueOf(fn).Pointer())
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func funcNameForPC(pc uintptr) string {
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "func"
	}
	return f.Name()
}
