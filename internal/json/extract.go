// Package json provides JSON extraction utilities for parsing LLM responses.
//
// LLMs often return JSON embedded in text or with additional commentary.
// This package provides utilities to extract and parse JSON from such responses.
package json

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("```(?:json)?")

// StripCodeFences removes markdown code fence markers anywhere in a response.
// Planner and repair outputs routinely arrive wrapped in ```json ... ``` blocks.
func StripCodeFences(response string) string {
	return strings.TrimSpace(codeFenceRe.ReplaceAllString(strings.TrimSpace(response), ""))
}

// extractJSON finds and returns the JSON portion of a response string.
// It handles common LLM response patterns:
// 1. Pure JSON response - returns the full response
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON object or array embedded in text - widest bracket window
//
// Limitations:
// - Uses simple bracket matching, not full JSON parsing
// - May fail if brackets appear inside strings or are unbalanced
func extractJSON(response string) (string, error) {
	response = StripCodeFences(response)

	// Try the full response first.
	var test interface{}
	if err := json.Unmarshal([]byte(response), &test); err == nil {
		return response, nil
	}

	// Try the widest object and array windows.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(response, pair[0])
		if start == -1 {
			continue
		}
		end := strings.LastIndex(response, pair[1])
		if end == -1 || end <= start {
			continue
		}
		candidate := response[start : end+1]
		var test interface{}
		if err := json.Unmarshal([]byte(candidate), &test); err == nil {
			return candidate, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// ExtractJSONFromResponse extracts and parses JSON from an LLM response.
// Returns the parsed value or an error if extraction fails.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := extractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// ExtractJSONFromResponseWithType extracts JSON from a response into a provided pointer.
// This is the non-generic version for cases where generics aren't suitable.
func ExtractJSONFromResponseWithType(response string, result interface{}) error {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), result); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// ExtractJSON extracts the JSON portion from a response string.
// Returns the raw JSON string suitable for further processing.
func ExtractJSON(response string) (string, error) {
	return extractJSON(response)
}
