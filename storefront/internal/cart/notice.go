package cart

import (
	"context"
	"log/slog"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a short user-facing confirmation, shown as a toast by clients.
type Notice struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

type Notifier interface {
	Notify(ctx context.Context, userID string, n Notice)
}

// LogNotifier writes notices to the log. Used when no live channel exists.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, userID string, n Notice) {
	l.Log.InfoContext(ctx, "notice", "user_id", userID, "title", n.Title, "description", n.Description, "variant", n.Variant)
}
