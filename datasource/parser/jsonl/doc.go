// Package jsonl parses JSON Lines data into in-memory DataFrames. This parser uses https://github.com/tidwall/gjson to process data, and locates each Schema column with a gjson path.
package jsonl
