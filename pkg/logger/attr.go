package logger

import "log/slog"

// Error records an error under the key "error". Nil yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Provider records an OAuth provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// IntegrationID records an integration identifier under the key "integration_id".
func IntegrationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("integration_id", id)
}

// UserID records a user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
