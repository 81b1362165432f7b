package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/voicelink-go/voicelink-lite/pkg/session"
	"github.com/voicelink-go/voicelink-lite/pkg/transcript"
)

// renderer prints the live subtitle and the committed history.
type renderer struct {
	w io.Writer

	lastUtterance string
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

// follow polls the controller and reprints the subtitle line whenever the
// active utterance changes. One line at a time: model text when the model is
// speaking, the user's own transcription otherwise.
func (r *renderer) follow(ctx context.Context, controller *session.Controller) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		snap := controller.Snapshot()
		if !snap.Active {
			r.lastUtterance = ""
			continue
		}
		if snap.ActiveUtterance == "" || snap.ActiveUtterance == r.lastUtterance {
			continue
		}
		r.lastUtterance = snap.ActiveUtterance
		role := "you"
		if snap.ModelLive != "" {
			role = "model"
		}
		fmt.Fprintf(r.w, "\r[%s] %s\n", role, snap.ActiveUtterance)
	}
}

// renderHistory prints the committed turns after a session ends.
func (r *renderer) renderHistory(snap session.UIState) {
	if len(snap.History) == 0 {
		return
	}
	fmt.Fprintln(r.w, "--- recent turns ---")
	for _, entry := range snap.History {
		label := "you"
		if entry.Role == transcript.RoleModel {
			label = "model"
		}
		fmt.Fprintf(r.w, "  [%s] %s\n", label, entry.Text)
	}
}
