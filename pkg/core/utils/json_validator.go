package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common JSON errors in hand-edited or agent-written payloads.
// Supported repairs include unquoted keys, single quotes, trailing commas,
// unclosed objects and markdown code fences.
//
// The repair library carries numbers as float32, so repaired output keeps about
// seven significant digits. Fractions that came back as a widened float32
// (0.9 -> 0.8999999761581421) are re-rounded to their shortest float32 form.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return reroundFloat32(repaired), nil
}

// reroundFloat32 returns the input unchanged when it is not a JSON document
func reroundFloat32(repaired string) string {
	dec := json.NewDecoder(strings.NewReader(repaired))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return repaired
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(reroundValue(doc)); err != nil {
		return repaired
	}
	return strings.TrimSpace(buf.String())
}

func reroundValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = reroundValue(e)
		}
	case []interface{}:
		for i, e := range t {
			t[i] = reroundValue(e)
		}
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			return t
		}
		f, err := t.Float64()
		if err != nil || float64(float32(f)) != f {
			return t
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 32))
	}
	return v
}

// ParseHJSON parses Human-friendly JSON (comments, unquoted keys, optional commas)
// and returns standard JSON.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return string(jsonBytes), nil
}

// SmartParse decodes input into target, trying in order:
// 1. Standard JSON
// 2. Hjson (comments, unquoted keys)
// 3. JSON repair (most aggressive, may reinterpret structure, float32 precision)
//
// Outer markdown code fences are stripped first. It returns the JSON text that
// was finally decoded.
func SmartParse(input string, target interface{}) (string, error) {
	input = CleanMarkdown(input)

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return input, nil
	}

	if converted, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return converted, nil
		}
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, nil
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}
