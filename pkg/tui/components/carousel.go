package components

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/flasharena/pkg/data"
)

// Carousel pages through the flashcards of a pack one card at a time.
// Answers stay hidden until revealed.
type Carousel struct {
	container    *tview.Flex
	currentCard  *tview.TextView
	navIndicator *tview.TextView

	cards        []data.Flashcard
	currentIndex int
	revealed     bool

	highlightColor tcell.Color
	normalColor    tcell.Color
	showNavigation bool

	onNavigate  func(index int, card data.Flashcard)
	keyHandlers map[tcell.Key]func() bool
}

// CarouselConfig holds configuration options for the carousel
type CarouselConfig struct {
	HighlightColor tcell.Color
	NormalColor    tcell.Color
	ShowNavigation bool
	OnNavigate     func(index int, card data.Flashcard)
}

// NewCarousel creates a new flashcard carousel with default configuration
func NewCarousel() *Carousel {
	return NewCarouselWithConfig(CarouselConfig{
		HighlightColor: tcell.ColorYellow,
		NormalColor:    tcell.ColorWhite,
		ShowNavigation: true,
	})
}

// NewCarouselWithConfig creates a carousel with custom configuration
func NewCarouselWithConfig(config CarouselConfig) *Carousel {
	c := &Carousel{
		container:      tview.NewFlex(),
		currentCard:    tview.NewTextView(),
		navIndicator:   tview.NewTextView(),
		currentIndex:   -1,
		highlightColor: config.HighlightColor,
		normalColor:    config.NormalColor,
		showNavigation: config.ShowNavigation,
		onNavigate:     config.OnNavigate,
		keyHandlers:    make(map[tcell.Key]func() bool),
	}

	c.setupUI()
	c.setupKeyHandlers()
	c.updateDisplay()
	return c
}

func (c *Carousel) setupUI() {
	c.container.SetDirection(tview.FlexRow)

	c.currentCard.SetBorder(true)
	c.currentCard.SetWordWrap(true)
	c.currentCard.SetScrollable(true)
	c.currentCard.SetDynamicColors(true)

	c.navIndicator.
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	c.container.AddItem(c.currentCard, 0, 1, true)
	if c.showNavigation {
		c.container.AddItem(c.navIndicator, 2, 0, false)
	}

	c.container.SetInputCapture(c.handleInput)
}

func (c *Carousel) setupKeyHandlers() {
	c.keyHandlers[tcell.KeyLeft] = c.Previous
	c.keyHandlers[tcell.KeyRight] = c.Next
	c.keyHandlers[tcell.KeyHome] = c.First
	c.keyHandlers[tcell.KeyEnd] = c.Last
	c.keyHandlers[tcell.KeyTab] = func() bool {
		c.ToggleAnswer()
		return true
	}
}

// SetCards replaces the deck and shows its first card
func (c *Carousel) SetCards(cards []data.Flashcard) {
	c.cards = make([]data.Flashcard, len(cards))
	copy(c.cards, cards)
	c.revealed = false

	if len(c.cards) > 0 {
		c.currentIndex = 0
	} else {
		c.currentIndex = -1
	}

	c.updateDisplay()
}

// Len returns the number of cards in the deck
func (c *Carousel) Len() int {
	return len(c.cards)
}

// GetCurrentCard returns the displayed card
func (c *Carousel) GetCurrentCard() data.Flashcard {
	if !c.HasCards() {
		return data.Flashcard{}
	}
	return c.cards[c.currentIndex]
}

// GetCurrentIndex returns the current carousel position, -1 when empty
func (c *Carousel) GetCurrentIndex() int {
	return c.currentIndex
}

// HasCards returns true if the carousel has any cards
func (c *Carousel) HasCards() bool {
	return c.currentIndex >= 0 && c.currentIndex < len(c.cards)
}

// Next moves to the next card, wrapping around
func (c *Carousel) Next() bool {
	if !c.HasCards() {
		return false
	}
	return c.NavigateTo((c.currentIndex + 1) % len(c.cards))
}

// Previous moves to the previous card, wrapping around
func (c *Carousel) Previous() bool {
	if !c.HasCards() {
		return false
	}
	i := c.currentIndex - 1
	if i < 0 {
		i = len(c.cards) - 1
	}
	return c.NavigateTo(i)
}

// First moves to the first card
func (c *Carousel) First() bool {
	if !c.HasCards() {
		return false
	}
	return c.NavigateTo(0)
}

// Last moves to the last card
func (c *Carousel) Last() bool {
	if !c.HasCards() {
		return false
	}
	return c.NavigateTo(len(c.cards) - 1)
}

// NavigateTo shows the card at index and hides its answer
func (c *Carousel) NavigateTo(index int) bool {
	if !c.HasCards() || index < 0 || index >= len(c.cards) {
		return false
	}

	c.currentIndex = index
	c.revealed = false
	c.updateDisplay()

	if c.onNavigate != nil {
		c.onNavigate(c.currentIndex, c.GetCurrentCard())
	}
	return true
}

// ToggleAnswer shows or hides the answer of the current card
func (c *Carousel) ToggleAnswer() {
	c.revealed = !c.revealed
	c.updateDisplay()
}

// Revealed reports whether the answer is visible
func (c *Carousel) Revealed() bool {
	return c.revealed
}

// SetOnNavigate sets the callback for navigation events
func (c *Carousel) SetOnNavigate(callback func(index int, card data.Flashcard)) {
	c.onNavigate = callback
}

// GetPrimitive returns the main container for integration with tview
func (c *Carousel) GetPrimitive() tview.Primitive {
	return c.container
}

func (c *Carousel) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if handler, exists := c.keyHandlers[event.Key()]; exists {
		if handler() {
			return nil
		}
	}
	return event
}

func (c *Carousel) updateDisplay() {
	if !c.HasCards() {
		c.currentCard.SetText("[gray]No flashcards in this pack[-]")
		c.currentCard.SetTitle("Preview")
		c.currentCard.SetBorderColor(c.normalColor)
		c.navIndicator.SetText("[gray]0 / 0[-]")
		return
	}

	c.currentCard.SetText(FormatCard(c.GetCurrentCard(), c.revealed))
	c.currentCard.SetTitle(fmt.Sprintf("Card %d", c.currentIndex+1))
	c.currentCard.SetBorderColor(c.highlightColor)
	c.currentCard.SetTitleColor(c.highlightColor)
	c.updateNavigationIndicator()
}

// FormatCard renders a flashcard as markup-free text with tview color tags.
// The answer is replaced by a hint unless revealed.
func FormatCard(card data.Flashcard, revealed bool) string {
	var content strings.Builder

	fmt.Fprintf(&content, "[white::b]%s[white::-]\n\n", tview.Escape(card.PlainQuestion()))
	if revealed {
		fmt.Fprintf(&content, "[green]Answer:[-] %s", tview.Escape(card.PlainAnswer()))
	} else {
		content.WriteString("[gray]Press Tab to reveal the answer[-]")
	}
	if card.Difficulty != "" {
		fmt.Fprintf(&content, "\n\n[blue]Difficulty:[-] %s", card.Difficulty)
	}
	return content.String()
}

func (c *Carousel) updateNavigationIndicator() {
	indicator := fmt.Sprintf("[white]%d / %d[-]", c.currentIndex+1, len(c.cards))

	if len(c.cards) <= 10 {
		dots := make([]string, len(c.cards))
		for i := range c.cards {
			if i == c.currentIndex {
				dots[i] = "[yellow]●[-]"
			} else {
				dots[i] = "[gray]○[-]"
			}
		}
		indicator = fmt.Sprintf("%s  %s", indicator, strings.Join(dots, " "))
	}

	if len(c.cards) > 1 {
		indicator += "\n[gray]← → Navigate  Tab: Answer[-]"
	}

	c.navIndicator.SetText(indicator)
}
