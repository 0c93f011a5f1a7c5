package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// HelpScreen provides help and keyboard shortcut information
type HelpScreen struct {
	root     *tview.Flex
	textView *tview.TextView
	app      *App
}

// NewHelpScreen creates a new help screen
func NewHelpScreen() *HelpScreen {
	hs := &HelpScreen{
		root:     tview.NewFlex(),
		textView: tview.NewTextView(),
	}

	hs.setupLayout()
	return hs
}

// GetPrimitive returns the root primitive for this screen
func (hs *HelpScreen) GetPrimitive() tview.Primitive {
	return hs.root
}

// OnEnter is called when the help screen becomes active
func (hs *HelpScreen) OnEnter(app any) error {
	hs.app, _ = app.(*App)
	hs.updateContent()
	return nil
}

// OnExit is called when leaving the help screen
func (hs *HelpScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (hs *HelpScreen) GetTitle() string {
	return "Help"
}

func (hs *HelpScreen) setupLayout() {
	hs.textView.
		SetBorder(true).
		SetTitle("Help - Flashcard Arena").
		SetTitleAlign(tview.AlignCenter)

	hs.textView.SetWrap(true).
		SetDynamicColors(true).
		SetScrollable(true)

	hs.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc || event.Rune() == 'q' || event.Rune() == 'Q' {
			if hs.app != nil {
				_ = hs.app.GoBack()
			}
			return nil
		}
		return event
	})

	hs.root.AddItem(hs.textView, 0, 1, true)
}

// Text returns the help content without color tags
func (hs *HelpScreen) Text() string {
	return hs.textView.GetText(true)
}

func (hs *HelpScreen) updateContent() {
	var content strings.Builder

	content.WriteString("[yellow]Flashcard Arena[-]\n\n")
	content.WriteString("Students face off in pairs over flashcards. The player who answers\n")
	content.WriteString("correctly wins the round and both ratings are updated by the server.\n\n")

	content.WriteString("[green]Global Keyboard Shortcuts[-]\n")
	content.WriteString("═════════════════════════\n")
	for _, binding := range globalKeyBindings {
		content.WriteString("[white]")
		content.WriteString(keyName(binding))
		content.WriteString("[-]  - ")
		content.WriteString(binding.Description)
		content.WriteString("\n")
	}

	content.WriteString("\n[green]Setup[-]\n")
	content.WriteString("═════\n")
	content.WriteString("Pick a pack, toggle at least two players with Enter and choose 1 to 20 rounds.\n")
	content.WriteString("← → page through the pack preview, Ctrl-S starts the battle.\n")

	content.WriteString("\n[green]Battle[-]\n")
	content.WriteString("══════\n")
	content.WriteString("[white]1[-] / [white]2[-]  - Player 1 or player 2 answered correctly\n")
	content.WriteString("[white]3[-]      - Both answered correctly\n")
	content.WriteString("[white]Tab[-]    - Show or hide the answer\n")
	content.WriteString("Enter skips the versus intro and leaves the round result.\n")

	content.WriteString("\n[green]Results[-]\n")
	content.WriteString("═══════\n")
	content.WriteString("[white]n[-] starts a new battle, [white]l[-] opens the leaderboard.\n")
	content.WriteString("Failed requests open a dialog; Retry repeats the same request.\n")

	content.WriteString("\nPress Esc or q to go back\n")

	hs.textView.SetText(content.String())
}
