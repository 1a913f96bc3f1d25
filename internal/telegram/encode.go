package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
	"strings"
)

// filePart is one upload discovered while scanning a parameter object.
type filePart struct {
	field string
	file  *InputFile
}

// encodeParams serializes params into a request body. Objects carrying at
// least one file with upload content become multipart/form-data; everything
// else becomes a JSON body. The caller never chooses the encoding.
func encodeParams(params any) (body []byte, contentType string, err error) {
	files := collectFiles(reflect.ValueOf(params), "")
	if len(files) == 0 {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, "", fmt.Errorf("marshal params: %w", err)
		}
		return data, "application/json", nil
	}
	return encodeMultipart(params, files)
}

// collectFiles walks v recursively and returns every InputFile that needs
// an upload, tagged with the json name of the field holding it.
func collectFiles(v reflect.Value, name string) []filePart {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return collectFiles(v.Elem(), name)
	case reflect.Struct:
		if file, ok := v.Interface().(InputFile); ok {
			if file.NeedsUpload() {
				f := file
				return []filePart{{field: name, file: &f}}
			}
			return nil
		}

		var parts []filePart
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			parts = append(parts, collectFiles(v.Field(i), jsonFieldName(field))...)
		}
		return parts
	case reflect.Slice, reflect.Array:
		var parts []filePart
		for i := 0; i < v.Len(); i++ {
			parts = append(parts, collectFiles(v.Index(i), name)...)
		}
		return parts
	case reflect.Map:
		var parts []filePart
		for _, key := range v.MapKeys() {
			parts = append(parts, collectFiles(v.MapIndex(key), fmt.Sprint(key.Interface()))...)
		}
		return parts
	default:
		return nil
	}
}

func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return field.Name
	}
	return tag
}

// encodeMultipart flattens the parameter object into form parts: one string
// part per scalar field, one binary part per upload.
func encodeMultipart(params any, files []filePart) ([]byte, string, error) {
	uploads := make(map[string]bool, len(files))
	for _, f := range files {
		uploads[f.field] = true
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, "", fmt.Errorf("marshal params: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, "", fmt.Errorf("flatten params: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if uploads[name] {
			continue
		}
		if err := w.WriteField(name, fieldString(value)); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.file.partFileName())
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.field, err)
		}
		if err := writeFileContent(part, f.file); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// fieldString converts a marshalled field to its form-part representation.
// JSON strings are unquoted; every other value keeps its JSON text, which
// is what the provider expects for numbers, booleans, and nested objects.
func fieldString(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	return string(value)
}

func writeFileContent(dst io.Writer, file *InputFile) error {
	switch {
	case len(file.Bytes) > 0:
		if _, err := dst.Write(file.Bytes); err != nil {
			return fmt.Errorf("write file bytes: %w", err)
		}
	case file.Reader != nil:
		if _, err := io.Copy(dst, file.Reader); err != nil {
			return fmt.Errorf("copy file content: %w", err)
		}
	}
	return nil
}
