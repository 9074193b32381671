package detect

import (
	"fmt"
	"reflect"
	"sync"
)

// ContractError is a parser emitting a value outside its declared unit.
type ContractError struct {
	Field string
	Unit  string
	Value any
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("field %s (%s) violates unit contract: %v", e.Field, e.Unit, e.Value)
}

var unitFields sync.Map // reflect.Type -> []unitField

type unitField struct {
	index int
	name  string
	unit  string
}

func unitFieldsOf(t reflect.Type) []unitField {
	if v, ok := unitFields.Load(t); ok {
		return v.([]unitField)
	}
	var fields []unitField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if u, ok := f.Tag.Lookup("unit"); ok && f.IsExported() {
			fields = append(fields, unitField{index: i, name: f.Name, unit: u})
		}
	}
	unitFields.Store(t, fields)
	return fields
}

// CheckUnits validates every field tagged `unit:"..."`. All units are
// physical magnitudes, so a negative value is always a parser bug.
func CheckUnits(rec any) error {
	v := reflect.ValueOf(rec)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	for _, f := range unitFieldsOf(v.Type()) {
		fv := v.Field(f.index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		var negative bool
		switch fv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			negative = fv.Int() < 0
		case reflect.Float32, reflect.Float64:
			negative = fv.Float() < 0
		}
		if negative {
			return &ContractError{Field: f.name, Unit: f.unit, Value: fv.Interface()}
		}
	}
	return nil
}
