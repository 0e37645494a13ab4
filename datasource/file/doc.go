// Package file provides DataFrames which read delimiter-separated files from disk.
// The file is read by the compiled unit when the DataFrame is executed, so it
// must exist and be readable at that point, not when the DataFrame is created.
package file
