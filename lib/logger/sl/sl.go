// Package sl contains small helpers for log/slog attributes.
package sl

import "log/slog"

// Err returns an error attribute under the conventional "error" key.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
