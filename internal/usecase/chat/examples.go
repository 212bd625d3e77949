package chat

// ExampleQuestion is a canned prompt shown on the welcome panel.
type ExampleQuestion struct {
	ID       int
	Question string
	Icon     string
}

var exampleQuestions = []ExampleQuestion{
	{ID: 1, Question: "What major event occurred for J.F. Packaging Limited on 30 October 2025?", Icon: "📦"},
	{ID: 2, Question: "Who are the in the board of directors at Softlogic?", Icon: "👥"},
	{ID: 3, Question: "What was the Earnings per Share (EPS) for Lanka Realty Investments PLC for the quarter ended September 2025?", Icon: "📊"},
}

// ExampleQuestions returns the welcome-panel prompts in display order.
func ExampleQuestions() []ExampleQuestion {
	out := make([]ExampleQuestion, len(exampleQuestions))
	copy(out, exampleQuestions)
	return out
}

// ExampleQuestionAt returns the n-th prompt, counting from 1.
func ExampleQuestionAt(n int) (ExampleQuestion, bool) {
	if n < 1 || n > len(exampleQuestions) {
		return ExampleQuestion{}, false
	}
	return exampleQuestions[n-1], true
}
