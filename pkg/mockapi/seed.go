package mockapi

import (
	"fmt"

	"github.com/pashagolub/flasharena/pkg/data"
)

var demoStudents = []string{"Ada", "Grace", "Linus", "Barbara", "Ken", "Margaret"}

var demoPacks = []struct {
	name        string
	description string
	cards       [][3]string
}{
	{
		name:        "Capitals",
		description: "World capitals warm-up",
		cards: [][3]string{
			{"What is the capital of <strong>France</strong>?", "Paris", "easy"},
			{"What is the capital of Peru?", "Lima", "medium"},
			{"What is the capital of Kazakhstan?", "Astana", "hard"},
			{"What is the capital of Australia?", "Canberra", "medium"},
		},
	},
	{
		name:        "Chemistry",
		description: "Elements and compounds",
		cards: [][3]string{
			{"Chemical formula of water?", "H<sub>2</sub>O", "easy"},
			{"Symbol of gold?", "Au", "medium"},
			{"Atomic number of carbon?", "6", "medium"},
		},
	},
}

// Seed fills the store with a demo roster and two packs
func Seed(st *Store) error {
	for _, name := range demoStudents {
		if _, err := st.CreateStudent(data.StudentInput{Name: name}); err != nil {
			return fmt.Errorf("failed to seed student %s: %w", name, err)
		}
	}
	for _, p := range demoPacks {
		pack, err := st.CreatePack(data.PackInput{Name: p.name, Description: p.description})
		if err != nil {
			return fmt.Errorf("failed to seed pack %s: %w", p.name, err)
		}
		for _, c := range p.cards {
			in := data.FlashcardInput{PackID: pack.ID, Question: c[0], Answer: c[1], Difficulty: data.Difficulty(c[2])}
			if _, err := st.CreateFlashcard(in); err != nil {
				return fmt.Errorf("failed to seed card %q: %w", c[0], err)
			}
		}
	}
	return nil
}
