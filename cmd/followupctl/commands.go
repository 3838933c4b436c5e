package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"followup-tracker/internal/feedback"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/mailbox"
	"followup-tracker/internal/model"
	"followup-tracker/internal/service"
	"followup-tracker/internal/view"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runList(tracker service.TrackerService, filterName string, asJSON bool, w io.Writer) error {
	filter, err := view.ParseFilter(filterName)
	if err != nil {
		return err
	}

	details := tracker.View(filter)
	if asJSON {
		return writeJSON(w, map[string]interface{}{
			"filter":   filter,
			"messages": details,
			"summary":  tracker.Stats(filter),
		})
	}

	if len(details) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No messages to follow up on."))
		return nil
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-8s %-6s %-10s %-28s %s", "TIER", "SCORE", "STATUS", "FROM", "SUBJECT")))
	for _, d := range details {
		from := d.SenderName
		if from == "" {
			from = d.SenderAddress
		}
		fmt.Fprintf(w, "%s %-6.1f %-10s %-28s %s\n",
			renderTier(d.Priority), d.Breakdown.Total, d.Status, truncate(from, 28), truncate(d.Subject, 60))
		fmt.Fprintf(w, "%s\n", dimStyle.Render("  "+d.ID+"  "+d.Recommendation))
	}
	return nil
}

func runStats(tracker service.TrackerService, filterName string, asJSON bool, w io.Writer) error {
	filter, err := view.ParseFilter(filterName)
	if err != nil {
		return err
	}

	summary := tracker.Stats(filter)
	if asJSON {
		return writeJSON(w, summary)
	}
	fmt.Fprintf(w, "Total: %d\nPending: %d\nHigh priority (%s): %d\n",
		summary.Total, summary.Pending, summary.Filter, summary.HighPriority)
	return nil
}

func runAct(ctx context.Context, tracker service.TrackerService, id, action string, w io.Writer) error {
	kind, err := model.ParseActionKind(action)
	if err != nil {
		return err
	}

	result, err := tracker.MarkAction(ctx, id, kind)
	if err != nil {
		return err
	}
	if result.Outcome == feedback.NotFound {
		return fmt.Errorf("message %s is not tracked", id)
	}

	fmt.Fprintf(w, "Recorded %s on %s; now %s. Weight for %s is %.0f.\n",
		kind, id, renderTier(result.Message.Priority), result.SenderKey, result.Weight)
	return nil
}

func runRefresh(ctx context.Context, tracker service.TrackerService, w io.Writer) error {
	result, err := tracker.Refresh(ctx)
	if err != nil {
		return err
	}
	printRefresh(w, result)
	return nil
}

func runImport(ctx context.Context, tracker service.TrackerService, path string, log *logger.Logger, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	raws, err := mailbox.ReadMbox(ctx, f, log)
	if err != nil {
		return err
	}

	result, err := tracker.Ingest(ctx, raws)
	if err != nil {
		return err
	}
	printRefresh(w, result)
	return nil
}

func printRefresh(w io.Writer, result service.RefreshResult) {
	fmt.Fprintf(w, "Fetched %d messages: %d added, %d updated, %d unchanged.\n",
		result.Fetched, result.Added, result.Updated, result.Unchanged)
}

// runScore accepts either one raw record or an array of them.
func runScore(tracker service.TrackerService, path string, asJSON bool, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raws []model.RawMessage
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &raws)
	} else {
		var raw model.RawMessage
		err = json.Unmarshal(trimmed, &raw)
		raws = append(raws, raw)
	}
	if err != nil {
		return fmt.Errorf("invalid message record: %w", err)
	}

	details := make([]service.MessageDetail, 0, len(raws))
	for _, raw := range raws {
		details = append(details, tracker.Preview(raw))
	}
	if asJSON {
		return writeJSON(w, details)
	}

	for _, d := range details {
		b := d.Breakdown
		fmt.Fprintf(w, "%s %.1f  %s\n", renderTier(b.Priority), b.Total, truncate(d.Subject, 60))
		fmt.Fprintf(w, "  age %.1f  importance %.0f  flagged %.0f  attachments %.0f  keywords %.0f  learning %.0f\n",
			b.Age, b.Importance, b.Flagged, b.Attachments, b.Keywords, b.Learning)
		fmt.Fprintf(w, "  %s\n", d.Recommendation)
	}
	return nil
}

func runClear(ctx context.Context, tracker service.TrackerService, w io.Writer) error {
	if err := tracker.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Cleared all tracked messages and learned weights.")
	return nil
}
