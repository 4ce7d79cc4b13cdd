package memory

import "quiz-duel-service/internal/domain"

// DefaultBank is a small built-in question bank used when no database is configured.
func DefaultBank() []domain.Question {
	return []domain.Question{
		{
			ID:     "general-01",
			Topic:  "general",
			Prompt: "What is the capital of France?",
			Options: []domain.Option{
				{Text: "Berlin"},
				{Text: "Madrid"},
				{Text: "Paris", Correct: true},
				{Text: "Rome"},
			},
			Explanation: "Paris has been the capital of France since the 10th century.",
		},
		{
			ID:     "general-02",
			Topic:  "general",
			Prompt: "How many continents are there?",
			Options: []domain.Option{
				{Text: "Five"},
				{Text: "Six"},
				{Text: "Seven", Correct: true},
				{Text: "Eight"},
			},
			Explanation: "Africa, Antarctica, Asia, Australia, Europe, North America and South America.",
		},
		{
			ID:     "general-03",
			Topic:  "general",
			Prompt: "Which planet is known as the Red Planet?",
			Options: []domain.Option{
				{Text: "Venus"},
				{Text: "Mars", Correct: true},
				{Text: "Jupiter"},
				{Text: "Mercury"},
			},
			Explanation: "Iron oxide on its surface gives Mars its colour.",
		},
		{
			ID:     "general-04",
			Topic:  "general",
			Prompt: "What is the boiling point of water at sea level in Celsius?",
			Options: []domain.Option{
				{Text: "90"},
				{Text: "100", Correct: true},
				{Text: "110"},
				{Text: "120"},
			},
			Explanation: "Water boils at 100 degrees Celsius at one atmosphere.",
		},
		{
			ID:     "general-05",
			Topic:  "general",
			Prompt: "Who painted the Mona Lisa?",
			Options: []domain.Option{
				{Text: "Michelangelo"},
				{Text: "Raphael"},
				{Text: "Leonardo da Vinci", Correct: true},
				{Text: "Donatello"},
			},
			Explanation: "Leonardo da Vinci painted it in the early 16th century.",
		},
		{
			ID:     "general-06",
			Topic:  "general",
			Prompt: "What is the largest ocean on Earth?",
			Options: []domain.Option{
				{Text: "Atlantic"},
				{Text: "Indian"},
				{Text: "Arctic"},
				{Text: "Pacific", Correct: true},
			},
			Explanation: "The Pacific covers about a third of the planet's surface.",
		},
		{
			ID:     "general-07",
			Topic:  "general",
			Prompt: "How many sides does a hexagon have?",
			Options: []domain.Option{
				{Text: "Five"},
				{Text: "Six", Correct: true},
				{Text: "Seven"},
				{Text: "Eight"},
			},
			Explanation: "Hex comes from the Greek word for six.",
		},
		{
			ID:     "general-08",
			Topic:  "general",
			Prompt: "Which gas do plants absorb from the atmosphere?",
			Options: []domain.Option{
				{Text: "Oxygen"},
				{Text: "Nitrogen"},
				{Text: "Carbon dioxide", Correct: true},
				{Text: "Helium"},
			},
			Explanation: "Plants take in carbon dioxide for photosynthesis.",
		},
		{
			ID:     "general-09",
			Topic:  "general",
			Prompt: "What is the chemical symbol for gold?",
			Options: []domain.Option{
				{Text: "Gd"},
				{Text: "Au", Correct: true},
				{Text: "Ag"},
				{Text: "Go"},
			},
			Explanation: "Au comes from the Latin word aurum.",
		},
		{
			ID:     "general-10",
			Topic:  "general",
			Prompt: "In which year did the first person walk on the Moon?",
			Options: []domain.Option{
				{Text: "1965"},
				{Text: "1969", Correct: true},
				{Text: "1972"},
				{Text: "1959"},
			},
			Explanation: "Apollo 11 landed on 20 July 1969.",
		},
		{
			ID:     "general-11",
			Topic:  "general",
			Prompt: "What is the smallest prime number?",
			Options: []domain.Option{
				{Text: "0"},
				{Text: "1"},
				{Text: "2", Correct: true},
				{Text: "3"},
			},
			Explanation: "Two is the only even prime.",
		},
		{
			ID:     "general-12",
			Topic:  "general",
			Prompt: "Which language has the most native speakers?",
			Options: []domain.Option{
				{Text: "English"},
				{Text: "Spanish"},
				{Text: "Hindi"},
				{Text: "Mandarin Chinese", Correct: true},
			},
			Explanation: "Mandarin Chinese has close to a billion native speakers.",
		},
	}
}
