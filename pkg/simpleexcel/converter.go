package simpleexcel

import (
	"fmt"
	"reflect"
	"strings"
)

// ConvertToDynamicData flattens a struct (or slice of structs) into maps keyed
// by JSON field name, so YAML templates can address columns the way the API names them.
// Map fields are flattened with a "<field>_<key>" prefix.
func ConvertToDynamicData(data interface{}) (interface{}, error) {
	val := reflect.ValueOf(data)

	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		return flattenStruct(val)
	case reflect.Slice:
		return flattenSlice(val)
	default:
		return nil, fmt.Errorf("expected struct or slice, got %v", val.Kind())
	}
}

func flattenStruct(val reflect.Value) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if fieldType.PkgPath != "" {
			continue
		}
		fieldName := columnName(fieldType)
		if fieldName == "" {
			continue
		}

		switch field.Kind() {
		case reflect.Map:
			if field.IsNil() {
				continue
			}
			for _, key := range field.MapKeys() {
				flattenedKey := fmt.Sprintf("%s_%v", fieldName, key.Interface())
				result[flattenedKey] = field.MapIndex(key).Interface()
			}
		case reflect.Ptr:
			if field.IsNil() {
				result[fieldName] = nil
				continue
			}
			result[fieldName] = field.Elem().Interface()
		case reflect.Slice:
			// Nested collections do not fit a single cell.
			continue
		default:
			result[fieldName] = field.Interface()
		}
	}

	return result, nil
}

func flattenSlice(val reflect.Value) ([]map[string]interface{}, error) {
	length := val.Len()
	result := make([]map[string]interface{}, length)

	for i := 0; i < length; i++ {
		elem := val.Index(i)
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}

		if elem.Kind() != reflect.Struct {
			return nil, fmt.Errorf("expected slice of structs, got slice of %v", elem.Kind())
		}

		flattened, err := flattenStruct(elem)
		if err != nil {
			return nil, err
		}
		result[i] = flattened
	}

	return result, nil
}

func columnName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}
