package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/pashagolub/flasharena/pkg/journal"
)

// Journal lists battle journal entries in file order
func (p *Printer) Journal(entries []journal.Entry) error {
	s := sheet{
		title:   "Battle journal",
		headers: []string{"seq", "time", "event", "summary"},
		empty:   "No entries",
	}
	for _, e := range entries {
		s.rows = append(s.rows, []cell{
			plain(strconv.FormatUint(e.Sequence, 10)),
			plain(e.Timestamp.Local().Format(dateLayout)),
			eventCell(e.EventType),
			plain(Truncate(summarize(e), textWidth+24)),
		})
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return p.emit(entries, s)
}

func eventCell(t journal.EventType) cell {
	switch t {
	case journal.EventBattleFinished:
		return colored(string(t), color.FgGreen)
	case journal.EventBattleAbandoned:
		return colored(string(t), color.FgRed)
	default:
		return plain(string(t))
	}
}

// summarize renders the payload of an entry as one line
func summarize(e journal.Entry) string {
	switch e.EventType {
	case journal.EventBattleStarted:
		var names []string
		if players, ok := e.Data["players"].([]any); ok {
			for _, pl := range players {
				if m, ok := pl.(map[string]any); ok {
					names = append(names, fmt.Sprint(m["name"]))
				}
			}
		}
		return fmt.Sprintf("%v rounds: %s", e.Data["num_rounds"], strings.Join(names, ", "))
	case journal.EventRoundScored:
		return fmt.Sprintf("round %v, winners %v", e.Data["round"], joinAny(e.Data["winner_ids"]))
	case journal.EventBattleFinished:
		if rankings, ok := e.Data["rankings"].([]any); ok && len(rankings) > 0 {
			if top, ok := rankings[0].(map[string]any); ok {
				return fmt.Sprintf("won by %v", top["name"])
			}
		}
		return "finished"
	case journal.EventBattleAbandoned:
		return fmt.Sprintf("after %v rounds: %v", e.Data["rounds_completed"], e.Data["reason"])
	}
	return ""
}

func joinAny(v any) string {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprint(it))
	}
	return strings.Join(parts, ", ")
}
