// Package codedom provides the semantic-edit tools.
//
// These tools work with code elements (functions, classes, methods)
// rather than raw text, resolving them through tree queries when a
// grammar is available and word-boundary matching otherwise.
//
// Tools:
//   - rename_symbol: Rename a symbol across a file, directory, or workspace
//   - extract_function: Extract a line range into a new function
//   - update_imports: Rewrite import lines referencing a moved package
//   - get_elements: List declarations in a file
package codedom
