package log

// Package log provides a small wrapper around the standard library logger
// used across rdex. It adds:
//
//   - Named (per-component) loggers via For(name)
//   - An automatic "[name]" message prefix
//   - Warn and Debug levels (Info is the default level, Error is also provided)
//   - The ability to enable debug globally or selectively per component
//
// Basic usage:
//
//	l := log.For("index")
//	l.Infof("rebuilt index with %d datasets", n)
//	l.Debugf("source mtimes: %v", mtimes) // only prints if debug enabled
//
// Debug can be enabled globally with SetGlobalDebug(true) or for a single
// component with EnableDebugFor("index").
//
// Tests can redirect output by calling SetOutput with a bytes.Buffer and
// asserting on its contents. All exported functions are safe for concurrent
// use; internally the package relies on sync.Map and atomic primitives.
