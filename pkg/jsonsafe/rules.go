/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package jsonsafe

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Rule is a single entry of the conversion table
type Rule struct {
	Name    string
	Match   func(v reflect.Value) bool
	Convert func(n *Normalizer, v reflect.Value, depth int) any
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	durationType      = reflect.TypeOf(time.Duration(0))
	civilDateTimeType = reflect.TypeOf(civil.DateTime{})
	civilDateType     = reflect.TypeOf(civil.Date{})
	civilTimeType     = reflect.TypeOf(civil.Time{})
	uuidType          = reflect.TypeOf(uuid.UUID{})
	jsonNumberType    = reflect.TypeOf(json.Number(""))
	bigIntType        = reflect.TypeOf(big.Int{})
	bigFloatType      = reflect.TypeOf(big.Float{})
	bigRatType        = reflect.TypeOf(big.Rat{})
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	byteType          = reflect.TypeOf(byte(0))
)

// basicTypes maps a kind to the predeclared type of that kind
var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Uintptr: reflect.TypeOf(uintptr(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
	reflect.String:  reflect.TypeOf(""),
}

// defaultRules is the conversion table in priority order
var defaultRules = []Rule{
	{Name: "primitive", Match: isPrimitive, Convert: convertPrimitive},
	{Name: "timestamp", Match: isTimestamp, Convert: convertTimestamp},
	{Name: "date", Match: isDateOrTimeOfDay, Convert: convertDateOrTimeOfDay},
	{Name: "duration", Match: isDuration, Convert: convertDuration},
	{Name: "bytes", Match: isBytes, Convert: convertBytes},
	{Name: "uuid", Match: isUUID, Convert: convertUUID},
	{Name: "decimal", Match: isDecimal, Convert: convertDecimal},
	{Name: "enum", Match: isEnum, Convert: convertEnum},
	{Name: "numeric array", Match: isNumericArray, Convert: convertNumericArray},
	{Name: "complex", Match: isComplex, Convert: convertComplex},
	{Name: "map", Match: isMap, Convert: convertMap},
	{Name: "sequence", Match: isSequence, Convert: convertSequence},
	{Name: "object", Match: isObject, Convert: convertObject},
	{Name: "fallback", Match: func(reflect.Value) bool { return true }, Convert: convertFallback},
}

func isBasicKind(k reflect.Kind) bool {
	_, ok := basicTypes[k]
	return ok
}

func isNumericKind(k reflect.Kind) bool {
	return isBasicKind(k) && k != reflect.Bool && k != reflect.String
}

func isBigNumber(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == bigIntType || t == bigFloatType || t == bigRatType
}

func isPrimitive(v reflect.Value) bool {
	t := v.Type()
	return t == jsonNumberType || (t.PkgPath() == "" && isBasicKind(t.Kind()))
}

func convertPrimitive(_ *Normalizer, v reflect.Value, _ int) any {
	if v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64 {
		return finite(v)
	}
	// json.Number is not checked until it is encoded
	if n, ok := v.Interface().(json.Number); ok {
		if _, err := json.Marshal(n); err != nil {
			return string(n)
		}
	}
	return v.Interface()
}

// finite keeps a float unless it is NaN or infinite, which JSON can not
// carry. Those become "NaN", "+Inf" or "-Inf".
func finite(v reflect.Value) any {
	if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
		return floatText(f)
	}
	return v.Interface()
}

func floatText(f float64) string {
	if math.IsInf(f, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isTimestamp(v reflect.Value) bool {
	return v.Type() == timeType || v.Type() == civilDateTimeType
}

// convertTimestamp formats in UTC with a Z suffix. A civil.DateTime carries no
// zone and is taken to be UTC.
func convertTimestamp(_ *Normalizer, v reflect.Value, _ int) any {
	var t time.Time
	switch x := v.Interface().(type) {
	case time.Time:
		t = x
	case civil.DateTime:
		t = x.In(time.UTC)
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func isDateOrTimeOfDay(v reflect.Value) bool {
	return v.Type() == civilDateType || v.Type() == civilTimeType
}

func convertDateOrTimeOfDay(_ *Normalizer, v reflect.Value, _ int) any {
	return v.Interface().(fmt.Stringer).String()
}

func isDuration(v reflect.Value) bool {
	return v.Type() == durationType
}

func convertDuration(_ *Normalizer, v reflect.Value, _ int) any {
	return time.Duration(v.Int()).Seconds()
}

func isBytes(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem() == byteType
}

func convertBytes(_ *Normalizer, v reflect.Value, _ int) any {
	return base64.StdEncoding.EncodeToString(v.Bytes())
}

func isUUID(v reflect.Value) bool {
	return v.Type() == uuidType
}

func convertUUID(_ *Normalizer, v reflect.Value, _ int) any {
	return v.Interface().(uuid.UUID).String()
}

func isDecimal(v reflect.Value) bool {
	return isBigNumber(v.Type())
}

// asBig returns a pointer to the big number held by v
func asBig(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		return v.Interface()
	}
	if v.CanAddr() {
		return v.Addr().Interface()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Interface()
}

func bigIntValue(i *big.Int) any {
	if i.IsInt64() {
		return i.Int64()
	}
	return json.Number(i.String())
}

func convertDecimal(_ *Normalizer, v reflect.Value, _ int) any {
	switch x := asBig(v).(type) {
	case *big.Int:
		return bigIntValue(x)
	case *big.Rat:
		if x.IsInt() {
			return bigIntValue(x.Num())
		}
		f, _ := x.Float64()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return x.String()
		}
		return f
	case *big.Float:
		if x.IsInf() {
			return x.String()
		}
		if x.IsInt() {
			i, _ := x.Int(nil)
			return bigIntValue(i)
		}
		f, _ := x.Float64()
		if math.IsInf(f, 0) {
			return x.Text('g', -1)
		}
		return f
	}
	return nil
}

func isEnum(v reflect.Value) bool {
	return v.Type().PkgPath() != "" && isBasicKind(v.Kind())
}

func convertEnum(n *Normalizer, v reflect.Value, depth int) any {
	return n.normalize(v.Convert(basicTypes[v.Kind()]), depth+1)
}

// isNumericArray reports whether v is a (possibly nested) slice or array of
// plain numbers. Byte slices and UUIDs below the top level are not numbers.
func isNumericArray(v reflect.Value) bool {
	t := v.Type()
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		if t == uuidType || (t.Kind() == reflect.Slice && t.Elem() == byteType) {
			return false
		}
		t = t.Elem()
	}
	return isNumericKind(t.Kind()) && t != durationType
}

func convertNumericArray(_ *Normalizer, v reflect.Value, _ int) any {
	return numericList(v)
}

func numericList(v reflect.Value) any {
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		out := make([]any, v.Len())
		for i := range out {
			out[i] = numericList(v.Index(i))
		}
		return out
	}
	v = v.Convert(basicTypes[v.Kind()])
	if v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64 {
		return finite(v)
	}
	return v.Interface()
}

func isComplex(v reflect.Value) bool {
	return v.Kind() == reflect.Complex64 || v.Kind() == reflect.Complex128
}

func convertComplex(_ *Normalizer, v reflect.Value, _ int) any {
	c := v.Complex()
	return []any{
		finite(reflect.ValueOf(real(c))),
		finite(reflect.ValueOf(imag(c))),
	}
}

func isMap(v reflect.Value) bool {
	return v.Kind() == reflect.Map
}

func convertMap(n *Normalizer, v reflect.Value, depth int) any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[mapKey(iter.Key())] = n.normalize(iter.Value(), depth+1)
	}
	return out
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	if s, ok := stringify(k).(string); ok {
		return s
	}
	return ""
}

func isSequence(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func convertSequence(n *Normalizer, v reflect.Value, depth int) any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = n.normalize(v.Index(i), depth+1)
	}
	return out
}

// isObject matches structs with exported fields and empty structs. Opaque
// structs and struct errors are left to the fallback so that they are
// rendered by their String or Error method.
func isObject(v reflect.Value) bool {
	if v.Kind() != reflect.Struct || v.Type().Implements(errorType) {
		return false
	}
	t := v.Type()
	if t.NumField() == 0 {
		return true
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// convertObject turns the exported fields of a struct into a map and
// normalizes the field values
func convertObject(n *Normalizer, v reflect.Value, depth int) any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = n.normalize(v.Field(i), depth+1)
	}
	return out
}

func convertFallback(_ *Normalizer, v reflect.Value, _ int) any {
	return stringify(v)
}

// stringify returns the string representation of v or nil if there is none
func stringify(v reflect.Value) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	switch x := v.Interface().(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	// String methods declared on the pointer, as for time.Location
	if v.CanAddr() {
		if x, ok := v.Addr().Interface().(fmt.Stringer); ok {
			return x.String()
		}
	}
	return fmt.Sprint(v.Interface())
}
