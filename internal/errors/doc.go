// Package errors provides structured, actionable error messages for the adapter.
//
// Every error carries a stable code (e.g., "E163") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E162").
//	    WithPath("dist/server/chunks").
//	    Wrap(ioErr)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E162: Chunk rewrite failed
//	//
//	//   dist/server/chunks
//	//
//	//   The compiled server chunks could not be read or rewritten.
//	//
//	//   Cause: open dist/server/chunks: no such file or directory
package errors
