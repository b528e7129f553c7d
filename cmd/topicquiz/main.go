// Command topicquiz plays AI-generated multiple choice quizzes in the terminal.
package main

func main() {
	Execute()
}
