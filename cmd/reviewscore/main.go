// Command reviewscore runs the review scoring API and its maintenance tasks.
package main

// Set by ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	Execute()
}
