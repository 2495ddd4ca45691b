package dispatch

import (
	"fmt"
	"strings"
)

const (
	msgGreeting      = "Hello! How can I assist you with movies today?"
	msgFarewell      = "Goodbye! Have a great day!"
	msgClarification = "I'm sorry, I didn't understand that. Can you please specify if you want recommendations, details, or search by genre?"
	msgNoDescriber   = "Sorry, I can't search by description right now."
)

func msgRecommendations(title string, titles []string) string {
	return fmt.Sprintf("If you liked %s, you might also enjoy: %s", title, strings.Join(titles, ", "))
}

func msgNoRecommendations(title string) string {
	return fmt.Sprintf("Sorry, I couldn't find recommendations for %s.", title)
}

func msgGenre(genre string, titles []string) string {
	return fmt.Sprintf("Here are some %s movies: %s", genre, strings.Join(titles, ", "))
}

func msgNoGenre(genre string) string {
	return fmt.Sprintf("Sorry, I couldn't find any movies in the %s genre.", genre)
}

func msgDetails(title, details string) string {
	return fmt.Sprintf("Details for %s: %s", title, details)
}

func msgNoDetails(title string) string {
	return fmt.Sprintf("Sorry, I couldn't find details for %s.", title)
}

func msgDescription(titles []string) string {
	return fmt.Sprintf("Movies matching that description: %s", strings.Join(titles, ", "))
}

func msgNoDescription() string {
	return "Sorry, I couldn't find movies matching that description."
}
