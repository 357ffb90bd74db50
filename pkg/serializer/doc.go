// Package serializer writes the run report of a deployer invocation.
//
// Supported formats:
//   - json: machine-readable, indented
//   - yaml: human-readable
//   - table: flattened FIELD/VALUE rows for CI logs
//
// Usage:
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatJSON, path)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	return w.Serialize(report)
package serializer
